// Package capture prepares uploaded or captured photos for classification:
// decode, centre-crop to a square, resize to the classifier input size.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"paddyguard/internal/tensor"
)

const (
	// MaxUploadBytes bounds how much of a photo is read
	MaxUploadBytes = 10 << 20
	// MaxPixels bounds the decoded size; a small compressed file can
	// declare dimensions far beyond what it is sensible to allocate
	MaxPixels = 50_000_000
)

// Prepare decodes a JPEG or PNG and returns a 224x224 image ready for the
// tensor builder. Images already at the target size are returned unchanged.
func Prepare(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return nil, "", &tensor.DecodeError{Err: err}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &tensor.DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", &tensor.DecodeError{
			Err: fmt.Errorf("image is %dx%d, at most %d pixels are accepted", cfg.Width, cfg.Height, MaxPixels),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &tensor.DecodeError{Err: err}
	}
	return Fit(img), format, nil
}

// Fit centre-crops img to a square and resizes it to the tensor input size
func Fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == tensor.Width && b.Dy() == tensor.Height {
		return img
	}

	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	square := imaging.CropCenter(img, side, side)

	return resize.Resize(tensor.Width, tensor.Height, square, resize.Lanczos3)
}

// EncodeJPEG re-encodes a prepared image, e.g. to keep it as history evidence
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
