// Package imagecodec converts uploaded bytes into images the pipeline can work on and back.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmpty    = errors.New("empty image data")
	ErrTooLarge = errors.New("image exceeds pixel limit")
)

// Decode accepts PNG, JPEG, GIF, BMP, TIFF and WebP. Images whose header
// declares more than maxPixels pixels are rejected before any pixel data is
// read; maxPixels <= 0 disables the check.
func Decode(data []byte, maxPixels int) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image header: %w", err)
		}
		if px := int64(cfg.Width) * int64(cfg.Height); px > int64(maxPixels) {
			return nil, fmt.Errorf("%w: %dx%d is %d pixels, limit %d", ErrTooLarge, cfg.Width, cfg.Height, px, maxPixels)
		}
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode image: zero-sized %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}

// Normalize returns a copy with bounds starting at (0,0) so token boxes and pixels share coordinates.
func Normalize(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DataURL(pngData []byte) string {
	return "data:image/png;base64," + Base64(pngData)
}
