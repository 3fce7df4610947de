package normalize

import "errors"

var (
	// ErrUnsupportedFormat is returned before any network call for media types the pipeline cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoRenderableContent means a PDF had neither usable text nor an embedded raster.
	ErrNoRenderableContent = errors.New("no readable text or image in file")
	ErrEmptyInput          = errors.New("empty file")
)
