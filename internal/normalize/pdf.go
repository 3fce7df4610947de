package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type textOutcome int

const (
	textOK textOutcome = iota
	textEmpty
	textFailed
)

func (o textOutcome) String() string {
	switch o {
	case textOK:
		return "ok"
	case textEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// pdfTextResult is the outcome of reading the leading pages of a PDF.
type pdfTextResult struct {
	Outcome textOutcome
	Text    string
	Err     error
}

// readPDFText extracts text from at most maxPages leading pages. The parser
// panics on some malformed files; that is reported as textFailed.
func readPDFText(data []byte, maxPages int) (res pdfTextResult) {
	defer func() {
		if r := recover(); r != nil {
			res = pdfTextResult{Outcome: textFailed, Err: fmt.Errorf("pdf parser panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return pdfTextResult{Outcome: textFailed, Err: err}
	}
	pages := reader.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return pdfTextResult{Outcome: textFailed, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return pdfTextResult{Outcome: textEmpty}
	}
	return pdfTextResult{Outcome: textOK, Text: text}
}

var errNoPageImage = errors.New("first page has no embedded image")

// firstPageImage decodes the largest raster embedded on page 1.
func firstPageImage(data []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("pdf image panic: %v", r)
		}
	}()

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), []string{"1"}, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	var best image.Image
	bestArea := 0
	for _, byObj := range pages {
		for _, raw := range byObj {
			if raw.Reader == nil {
				continue
			}
			decoded, err := imaging.Decode(raw.Reader, imaging.AutoOrientation(true))
			if err != nil {
				continue
			}
			b := decoded.Bounds()
			if area := b.Dx() * b.Dy(); area > bestArea {
				best, bestArea = decoded, area
			}
		}
	}
	if best == nil {
		return nil, errNoPageImage
	}
	return best, nil
}
