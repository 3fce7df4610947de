package normalize

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoder for image.Decode
)

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// fitJPEG scales img so its longer edge is at most maxEdge and encodes it as JPEG.
func fitJPEG(img image.Image, maxEdge, quality int) ([]byte, error) {
	b := img.Bounds()
	if maxEdge > 0 && (b.Dx() > maxEdge || b.Dy() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func previewDataURL(img image.Image, edge, quality int) (string, error) {
	jpg, err := fitJPEG(img, edge, quality)
	if err != nil {
		return "", err
	}
	return "data:" + MimeJPEG + ";base64," + base64.StdEncoding.EncodeToString(jpg), nil
}
