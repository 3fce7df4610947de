// Package normalize turns uploaded files into either extractable text or a
// compressed raster for the extraction model, plus a small preview for the UI.
package normalize

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"traveldocs-backend/internal/shared/telemetry"
)

type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Options holds the format policy. Zero fields fall back to DefaultOptions.
type Options struct {
	MaxPDFPages       int
	MinTextLength     int
	CompressThreshold int64
	MaxImageDimension int
	JPEGQuality       int
	PreviewDimension  int
	MaxTextRunes      int
}

func DefaultOptions() Options {
	return Options{
		MaxPDFPages:       5,
		MinTextLength:     50,
		CompressThreshold: 1 << 20,
		MaxImageDimension: 1600,
		JPEGQuality:       80,
		PreviewDimension:  320,
		MaxTextRunes:      60000,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxPDFPages <= 0 {
		o.MaxPDFPages = def.MaxPDFPages
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = def.MinTextLength
	}
	if o.CompressThreshold <= 0 {
		o.CompressThreshold = def.CompressThreshold
	}
	if o.MaxImageDimension <= 0 {
		o.MaxImageDimension = def.MaxImageDimension
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = def.JPEGQuality
	}
	if o.PreviewDimension <= 0 {
		o.PreviewDimension = def.PreviewDimension
	}
	if o.MaxTextRunes <= 0 {
		o.MaxTextRunes = def.MaxTextRunes
	}
	return o
}

type Input struct {
	FileName string
	MimeType string
	Data     []byte
}

// Result is the canonical form handed to extraction and storage.
type Result struct {
	Modality      Modality
	Text          string
	ImageBase64   string
	ImageMimeType string
	// Preview is a JPEG data URL, empty when no preview could be produced.
	Preview string

	Payload         []byte
	PayloadMimeType string
	PayloadName     string
	SourceMimeType  string
}

func (r Result) IsText() bool { return r.Modality == ModalityText }

type Normalizer struct {
	opts     Options
	pdfText  func(data []byte, maxPages int) pdfTextResult
	pdfImage func(data []byte) (image.Image, error)
}

func New(opts Options) *Normalizer {
	return &Normalizer{
		opts:     opts.withDefaults(),
		pdfText:  readPDFText,
		pdfImage: firstPageImage,
	}
}

func (n *Normalizer) Options() Options { return n.opts }

// Normalize routes the file by media type.
func (n *Normalizer) Normalize(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(in.Data) == 0 {
		return Result{}, ErrEmptyInput
	}
	mime := ResolveMimeType(in.MimeType, in.FileName, in.Data)
	base := Result{
		Payload:         in.Data,
		PayloadMimeType: mime,
		PayloadName:     in.FileName,
		SourceMimeType:  mime,
	}

	switch {
	case mime == MimePDF:
		return n.normalizePDF(in, base)
	case isRaster(mime):
		return n.normalizeImage(in, base)
	case mime == MimeDOCX:
		text, err := readDOCXText(in.Data)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if strings.TrimSpace(text) == "" {
			return Result{}, ErrNoRenderableContent
		}
		base.Modality = ModalityText
		base.Text = n.clip(text)
		return base, nil
	case isPlainText(mime):
		if !utf8.Valid(in.Data) {
			return Result{}, fmt.Errorf("%w: text is not valid utf-8", ErrUnsupportedFormat)
		}
		text := string(in.Data)
		if strings.TrimSpace(text) == "" {
			return Result{}, ErrNoRenderableContent
		}
		base.Modality = ModalityText
		base.Text = n.clip(text)
		return base, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
}

func (n *Normalizer) normalizePDF(in Input, base Result) (Result, error) {
	read := n.pdfText(in.Data, n.opts.MaxPDFPages)
	if read.Outcome == textOK && utf8.RuneCountInString(read.Text) >= n.opts.MinTextLength {
		base.Modality = ModalityText
		base.Text = n.clip(read.Text)
		if img, err := n.pdfImage(in.Data); err == nil {
			base.Preview = n.preview(img, in.FileName)
		}
		return base, nil
	}

	fields := map[string]any{
		"file_name":   in.FileName,
		"text_result": read.Outcome.String(),
		"text_length": len(read.Text),
	}
	if read.Err != nil {
		fields["error"] = read.Err
	}
	telemetry.Info("normalize.pdf_image_fallback", fields)

	img, err := n.pdfImage(in.Data)
	var jpg []byte
	if err == nil {
		jpg, err = fitJPEG(img, n.opts.MaxImageDimension, n.opts.JPEGQuality)
	}
	if err != nil {
		// Short text still beats nothing when the page has no raster.
		if read.Outcome == textOK {
			telemetry.Info("normalize.pdf_short_text", map[string]any{"file_name": in.FileName, "error": err})
			base.Modality = ModalityText
			base.Text = n.clip(read.Text)
			return base, nil
		}
		return Result{}, fmt.Errorf("%w: %v", ErrNoRenderableContent, err)
	}
	base.Modality = ModalityImage
	base.ImageBase64 = base64.StdEncoding.EncodeToString(jpg)
	base.ImageMimeType = MimeJPEG
	base.Preview = n.preview(img, in.FileName)
	return base, nil
}

func (n *Normalizer) normalizeImage(in Input, base Result) (Result, error) {
	base.Modality = ModalityImage
	base.ImageBase64 = base64.StdEncoding.EncodeToString(in.Data)
	base.ImageMimeType = base.PayloadMimeType

	img, err := decodeImage(in.Data)
	if err != nil {
		// Undecodable rasters still go to the model unchanged.
		telemetry.Warn("normalize.image_decode_failed", map[string]any{"file_name": in.FileName, "error": err})
		return base, nil
	}

	if int64(len(in.Data)) > n.opts.CompressThreshold {
		jpg, err := fitJPEG(img, n.opts.MaxImageDimension, n.opts.JPEGQuality)
		if err == nil {
			base.Payload = jpg
			base.PayloadMimeType = MimeJPEG
			base.PayloadName = jpegName(in.FileName)
			base.ImageBase64 = base64.StdEncoding.EncodeToString(jpg)
			base.ImageMimeType = MimeJPEG
		}
	}
	base.Preview = n.preview(img, in.FileName)
	return base, nil
}

func (n *Normalizer) preview(img image.Image, fileName string) string {
	url, err := previewDataURL(img, n.opts.PreviewDimension, n.opts.JPEGQuality)
	if err != nil {
		telemetry.Warn("normalize.preview_failed", map[string]any{"file_name": fileName, "error": err})
		return ""
	}
	return url
}

func (n *Normalizer) clip(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n.opts.MaxTextRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:n.opts.MaxTextRunes])
}

func jpegName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem = "image"
	}
	return stem + ".jpg"
}
