package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const MIMEJPEG = "image/jpeg"

var ErrEmptyImage = errors.New("image has no pixels")

// Decode decodes a JPEG, PNG or WebP image.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if Empty(img) {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// Empty reports a nil or zero-sized image, e.g. a frame the device has not filled yet.
func Empty(img image.Image) bool {
	return img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0
}

// Fit scales img down so it fits in maxWidth x maxHeight, keeping the aspect
// ratio. Images already inside the bound are returned as is.
func Fit(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if (maxWidth <= 0 || w <= maxWidth) && (maxHeight <= 0 || h <= maxHeight) {
		return img
	}

	scale := 1.0
	if maxWidth > 0 && w > maxWidth {
		scale = float64(maxWidth) / float64(w)
	}
	if maxHeight > 0 && float64(h)*scale > float64(maxHeight) {
		scale = float64(maxHeight) / float64(h)
	}

	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return Resize(img, nw, nh)
}

// Resize resizes an image to the specified dimensions using high-quality interpolation
func Resize(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEGWithin encodes img starting at quality and lowers it in steps of
// 5 (not below 50) until the result is at most maxBytes.
func EncodeJPEGWithin(img image.Image, quality, maxBytes int) ([]byte, error) {
	var out []byte
	for q := quality; q >= 50; q -= 5 {
		data, err := EncodeJPEG(img, q)
		if err != nil {
			return nil, err
		}
		out = data
		if maxBytes <= 0 || len(data) <= maxBytes {
			return data, nil
		}
	}
	return out, nil
}

// PrepareReference normalizes a reference photo for enrollment: any supported
// format in, a JPEG bounded to maxSide out.
func PrepareReference(data []byte, maxSide, maxBytes int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodeJPEGWithin(Fit(img, maxSide, maxSide), 90, maxBytes)
}
