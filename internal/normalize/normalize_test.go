package normalize

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fakePDF(text pdfTextResult, img image.Image, imgErr error) *Normalizer {
	n := New(Options{})
	n.pdfText = func([]byte, int) pdfTextResult { return text }
	n.pdfImage = func([]byte) (image.Image, error) { return img, imgErr }
	return n
}

var pdfBytes = []byte("%PDF-1.7\n% fake body\n")

func TestPDFRoutingAtExactThreshold(t *testing.T) {
	atThreshold := strings.Repeat("a", 50)
	n := fakePDF(pdfTextResult{Outcome: textOK, Text: atThreshold}, gradient(40, 40), nil)

	res, err := n.Normalize(context.Background(), Input{FileName: "t.pdf", MimeType: MimePDF, Data: pdfBytes})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityText || res.Text != atThreshold {
		t.Fatalf("expected text branch at threshold, got %s", res.Modality)
	}
	if !strings.HasPrefix(res.Preview, "data:image/jpeg;base64,") {
		t.Fatalf("expected preview on text branch")
	}

	n = fakePDF(pdfTextResult{Outcome: textOK, Text: atThreshold[:49]}, gradient(40, 40), nil)
	res, err = n.Normalize(context.Background(), Input{FileName: "t.pdf", MimeType: MimePDF, Data: pdfBytes})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityImage || res.ImageMimeType != MimeJPEG || res.ImageBase64 == "" {
		t.Fatalf("expected image branch below threshold, got %+v", res.Modality)
	}
	if res.PayloadMimeType != MimePDF || !bytes.Equal(res.Payload, pdfBytes) {
		t.Fatalf("pdf payload must be stored unchanged")
	}
}

func TestPDFThresholdCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("ü", 50)
	n := fakePDF(pdfTextResult{Outcome: textOK, Text: text}, nil, errNoPageImage)
	res, err := n.Normalize(context.Background(), Input{FileName: "t.pdf", MimeType: MimePDF, Data: pdfBytes})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityText {
		t.Fatalf("expected text branch")
	}
	if res.Preview != "" {
		t.Fatalf("expected empty preview when raster step fails")
	}
}

func TestPDFFailedTextFallsBackToImage(t *testing.T) {
	n := fakePDF(pdfTextResult{Outcome: textFailed, Err: errors.New("bad xref")}, gradient(2400, 1200), nil)
	res, err := n.Normalize(context.Background(), Input{FileName: "scan.pdf", MimeType: "application/pdf", Data: pdfBytes})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityImage {
		t.Fatalf("expected image branch")
	}
	raw, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1600 || b.Dy() != 800 {
		t.Fatalf("expected 1600x800, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPDFWithoutTextOrImage(t *testing.T) {
	n := fakePDF(pdfTextResult{Outcome: textEmpty}, nil, errNoPageImage)
	_, err := n.Normalize(context.Background(), Input{FileName: "blank.pdf", MimeType: MimePDF, Data: pdfBytes})
	if !errors.Is(err, ErrNoRenderableContent) {
		t.Fatalf("expected ErrNoRenderableContent, got %v", err)
	}
}

func TestLargeRasterIsRecompressed(t *testing.T) {
	data := encodePNG(t, gradient(2000, 1000))
	n := New(Options{CompressThreshold: 1024})

	res, err := n.Normalize(context.Background(), Input{FileName: "visa.png", MimeType: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.PayloadMimeType != MimeJPEG || res.PayloadName != "visa.jpg" {
		t.Fatalf("expected jpeg payload, got %s %s", res.PayloadMimeType, res.PayloadName)
	}
	img, err := imaging.Decode(bytes.NewReader(res.Payload))
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1600 || b.Dy() != 800 {
		t.Fatalf("expected 1600x800, got %dx%d", b.Dx(), b.Dy())
	}
	if res.ImageBase64 != base64.StdEncoding.EncodeToString(res.Payload) {
		t.Fatalf("model input must match stored payload")
	}
	if !strings.HasPrefix(res.Preview, "data:image/jpeg;base64,") {
		t.Fatalf("expected preview")
	}
}

func TestSmallRasterPassesThrough(t *testing.T) {
	data := encodePNG(t, gradient(64, 32))
	res, err := New(Options{}).Normalize(context.Background(), Input{FileName: "id.png", MimeType: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !bytes.Equal(res.Payload, data) || res.ImageMimeType != MimePNG {
		t.Fatalf("expected unchanged png payload")
	}
	if res.Preview == "" {
		t.Fatalf("expected preview for small image")
	}
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDOCXText(t *testing.T) {
	data := buildDOCX(t, `<w:p><w:r><w:t>Rental contract</w:t></w:r></w:p><w:p><w:r><w:t>Rent due on the 1st</w:t></w:r></w:p>`)
	res, err := New(Options{}).Normalize(context.Background(), Input{FileName: "lease.docx", MimeType: "application/octet-stream", Data: data})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityText {
		t.Fatalf("expected text modality")
	}
	if res.Text != "Rental contract\nRent due on the 1st" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Preview != "" {
		t.Fatalf("docx has no preview")
	}
}

func TestPlainTextAndUnsupported(t *testing.T) {
	n := New(Options{})
	res, err := n.Normalize(context.Background(), Input{FileName: "notes.md", MimeType: "", Data: []byte("# Trip\nHotel check-in 15:00")})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityText || res.Text != "# Trip\nHotel check-in 15:00" {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = n.Normalize(context.Background(), Input{FileName: "setup.exe", MimeType: "application/x-msdownload", Data: []byte("MZ\x90\x00")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	_, err = n.Normalize(context.Background(), Input{FileName: "empty.txt", MimeType: "text/plain"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestResolveMimeType(t *testing.T) {
	png := encodePNG(t, gradient(2, 2))
	tests := []struct {
		declared string
		name     string
		data     []byte
		want     string
	}{
		{declared: "application/pdf; charset=binary", name: "a.pdf", want: MimePDF},
		{declared: "image/jpg", name: "a.jpg", want: MimeJPEG},
		{declared: "application/octet-stream", name: "x.bin", data: png, want: MimePNG},
		{declared: "", name: "notes.csv", data: []byte("a,b\n1,2\n"), want: MimeCSV},
		{declared: "", name: "unknown", want: "application/octet-stream"},
		{declared: "application/zip", name: "lease.docx", data: []byte("PK\x03\x04broken"), want: MimeDOCX},
	}
	for _, tt := range tests {
		if got := ResolveMimeType(tt.declared, tt.name, tt.data); got != tt.want {
			t.Fatalf("ResolveMimeType(%q, %q) = %q, want %q", tt.declared, tt.name, got, tt.want)
		}
	}
}

// minimalPDF writes a one-page PDF showing text with a standard font.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestReadPDFTextFromRealFile(t *testing.T) {
	phrase := "Boarding pass LH1172 Frankfurt to Lisbon departs 2025-03-01 at 14:00 gate B12"
	res := readPDFText(minimalPDF(phrase), 5)
	if res.Outcome != textOK {
		t.Fatalf("expected text outcome ok, got %s (%v)", res.Outcome, res.Err)
	}
	if !strings.Contains(res.Text, "Lisbon") {
		t.Fatalf("expected extracted text, got %q", res.Text)
	}
}

// imagePDF writes a one-page PDF whose only content is the given JPEG.
func imagePDF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	b := img.Bounds()
	content := fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im1 Do Q", b.Dx(), b.Dy())
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /XObject << /Im1 5 0 R >> >> /Contents 4 0 R >>", b.Dx(), b.Dy()),
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream", b.Dx(), b.Dy(), jpg.Len(), jpg.String()),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestShortTextPDFWithoutRasterUsesText(t *testing.T) {
	data := minimalPDF("Visa 2025-03-01 Berlin")
	n := New(Options{})

	res, err := n.Normalize(context.Background(), Input{FileName: "visa.pdf", MimeType: MimePDF, Data: data})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityText || !strings.Contains(res.Text, "Berlin") {
		t.Fatalf("expected short text on text branch, got %q %q", res.Modality, res.Text)
	}
	if res.Preview != "" || res.ImageBase64 != "" {
		t.Fatalf("expected no preview and no image input")
	}
	if !bytes.Equal(res.Payload, data) {
		t.Fatalf("pdf payload must be stored unchanged")
	}
}

func TestFirstPageImageFromRealFiles(t *testing.T) {
	if _, err := firstPageImage(minimalPDF("Visa 2025-03-01 Berlin")); err == nil {
		t.Fatalf("expected error for a page without rasters")
	}

	img, err := firstPageImage(imagePDF(t, gradient(120, 80)))
	if err != nil {
		t.Fatalf("firstPageImage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Fatalf("expected 120x80, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestScannedPDFUsesImageBranch(t *testing.T) {
	n := New(Options{})
	res, err := n.Normalize(context.Background(), Input{FileName: "scan.pdf", MimeType: MimePDF, Data: imagePDF(t, gradient(120, 80))})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityImage || res.ImageMimeType != MimeJPEG || res.Preview == "" {
		t.Fatalf("expected image branch with preview, got %q", res.Modality)
	}
}

func TestShortTextFallbackWhenRasterFails(t *testing.T) {
	n := fakePDF(pdfTextResult{Outcome: textOK, Text: "Visa"}, nil, errNoPageImage)
	res, err := n.Normalize(context.Background(), Input{FileName: "t.pdf", MimeType: MimePDF, Data: pdfBytes})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Modality != ModalityText || res.Text != "Visa" || res.Preview != "" {
		t.Fatalf("unexpected result %+v", res.Modality)
	}
}

func TestReadPDFTextGarbage(t *testing.T) {
	res := readPDFText([]byte("%PDF-1.4 not really"), 5)
	if res.Outcome != textFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
}
