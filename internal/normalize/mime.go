package normalize

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeJPEG     = "image/jpeg"
	MimePNG      = "image/png"
	MimeGIF      = "image/gif"
	MimeWEBP     = "image/webp"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeCSV      = "text/csv"
)

var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".jpg":  MimeJPEG,
	".jpeg": MimeJPEG,
	".png":  MimePNG,
	".gif":  MimeGIF,
	".webp": MimeWEBP,
	".txt":  MimeText,
	".md":   MimeMarkdown,
	".csv":  MimeCSV,
}

// ResolveMimeType returns the declared type without parameters. Generic or
// missing declarations are replaced by content sniffing, then the file extension.
func ResolveMimeType(declared, fileName string, data []byte) string {
	clean := baseType(declared)
	switch clean {
	case "", "application/octet-stream", "application/zip", "binary/octet-stream":
	case "image/jpg", "image/pjpeg":
		return MimeJPEG
	case "text/x-markdown":
		return MimeMarkdown
	default:
		return clean
	}

	if len(data) > 0 {
		if sniffed := baseType(mimetype.Detect(data).String()); sniffed != "" && sniffed != "application/octet-stream" && sniffed != "application/zip" {
			if sniffed == MimeText {
				if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok && strings.HasPrefix(byExt, "text/") {
					return byExt
				}
			}
			return sniffed
		}
	}
	if byExt, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return byExt
	}
	if clean == "" {
		return "application/octet-stream"
	}
	return clean
}

func baseType(v string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(v, ";")[0]))
}

func isRaster(mime string) bool {
	switch mime {
	case MimeJPEG, MimePNG, MimeGIF, MimeWEBP:
		return true
	}
	return false
}

func isPlainText(mime string) bool {
	switch mime {
	case MimeText, MimeMarkdown, MimeCSV:
		return true
	}
	return false
}
