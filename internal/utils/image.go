package utils

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	_ "image/gif" // decoder registration for uploads

	"github.com/nfnt/resize"
)

// ErrUnsupportedImage is returned for payloads that are not jpeg, png or gif.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ResizeImage decodes an uploaded picture and fits it into a maxEdge square,
// keeping the aspect ratio and never upscaling.  PNG input stays PNG (to keep
// transparency); everything else is re-encoded as JPEG.  It returns the
// encoded bytes and their content type.
func ResizeImage(r io.Reader, maxEdge uint) ([]byte, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", ErrUnsupportedImage
	}

	b := img.Bounds()
	if uint(b.Dx()) > maxEdge || uint(b.Dy()) > maxEdge {
		img = resize.Thumbnail(maxEdge, maxEdge, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}
