// Package photo decodes product photographs upright, with the EXIF
// orientation applied, so every renderer sees the same canvas.
package photo

import (
	"bytes"
	"errors"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

var errEmpty = errors.New("empty image")

// Decode returns the upright image.
func Decode(src []byte) (image.Image, error) {
	if len(src) == 0 {
		return nil, errEmpty
	}
	return imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
}

// Upright returns src with its upright size. A rotated or mirrored JPEG is
// re-encoded as PNG so that viewers ignoring EXIF show it upright too.
func Upright(src []byte) (data []byte, width, height int, err error) {
	if len(src) == 0 {
		return nil, 0, 0, errEmpty
	}
	if Orientation(src) <= 1 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
		if err != nil {
			return nil, 0, 0, err
		}
		return src, cfg.Width, cfg.Height, nil
	}
	img, err := Decode(src)
	if err != nil {
		return nil, 0, 0, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}

// Orientation reads the EXIF orientation tag (1-8). Images without one
// report 1.
func Orientation(src []byte) int {
	x, err := exif.Decode(bytes.NewReader(src))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}
