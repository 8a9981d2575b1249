// Package raster burns a customization into a photograph of a shirt back.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/layout"
	"jerseyprint/internal/render/fonts"
	"jerseyprint/internal/render/photo"
)

const (
	shadowOffset = 2.0
	shadowSigma  = 2.0

	// fontRetryAfter is how long a failed font load is answered with the fallback face.
	fontRetryAfter = 30 * time.Second
)

var shadowColor = color.NRGBA{A: 0x80}

// Compositor draws name and number runs onto raster images.
type Compositor struct {
	fonts   domain.FontSource
	fetcher domain.Fetcher
	limits  domain.Limits
	spec    layout.Spec

	mu       sync.Mutex
	font     *fonts.Set
	fallback *fonts.Set
	retryAt  time.Time
	now      func() time.Time
}

// New returns a compositor. A nil font source draws with the embedded fallback face.
func New(fontSource domain.FontSource, fetcher domain.Fetcher, limits domain.Limits) *Compositor {
	return &Compositor{
		fonts:   fontSource,
		fetcher: fetcher,
		limits:  limits,
		spec:    layout.Default,
		now:     time.Now,
	}
}

// CompositeURL fetches the source image and composites it.
func (c *Compositor) CompositeURL(ctx context.Context, url string, cust domain.Customization) (domain.Artifact, error) {
	if c.fetcher == nil {
		return domain.Artifact{}, fmt.Errorf("image fetcher: %w", domain.ErrNotConfigured)
	}
	src, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrImageLoad, err)
	}
	return c.Composite(ctx, src, cust)
}

// Composite decodes src, draws the number then the name at the composite
// anchors and returns a PNG of the same size as src.
func (c *Compositor) Composite(ctx context.Context, src []byte, cust domain.Customization) (domain.Artifact, error) {
	cust, err := cust.Normalize(c.limits)
	if err != nil {
		return domain.Artifact{}, err
	}
	textColor, err := domain.ParseColor(cust.TextColor)
	if err != nil {
		return domain.Artifact{}, err
	}

	img, err := decode(src)
	if err != nil {
		return domain.Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, err
	}

	bounds := img.Bounds()
	l, err := c.spec.Compute(bounds.Dx(), bounds.Dy(), layout.ModeComposite)
	if err != nil {
		return domain.Artifact{}, err
	}

	dst := imaging.Clone(img)
	if runs := plan(l, cust); len(runs) > 0 {
		set := c.fontSet(ctx)
		for _, run := range runs {
			if err := ctx.Err(); err != nil {
				return domain.Artifact{}, err
			}
			dst, err = drawRun(dst, set, run, textColor)
			if err != nil {
				return domain.Artifact{}, err
			}
		}
	}

	data, err := encodePNG(dst)
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{
		Data:        data,
		ContentType: domain.ContentTypePNG,
		Filename:    "jersey-back.png",
		Width:       l.Width,
		Height:      l.Height,
	}, nil
}

// Reencode converts any supported image to PNG without drawing on it.
func Reencode(ctx context.Context, src []byte) (domain.Artifact, error) {
	img, err := decode(src)
	if err != nil {
		return domain.Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, err
	}
	data, err := encodePNG(img)
	if err != nil {
		return domain.Artifact{}, err
	}
	b := img.Bounds()
	return domain.Artifact{
		Data:        data,
		ContentType: domain.ContentTypePNG,
		Filename:    "jersey-front.png",
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}

// textRun is one centred string drawn at an anchor.
type textRun struct {
	Text   string
	Anchor layout.Anchor
}

// plan lists the runs to draw, number first.
func plan(l layout.Layout, cust domain.Customization) []textRun {
	var runs []textRun
	if cust.Number != "" {
		runs = append(runs, textRun{Text: cust.Number, Anchor: l.Number})
	}
	if cust.Name != "" {
		runs = append(runs, textRun{Text: cust.Name, Anchor: l.Name})
	}
	return runs
}

func (c *Compositor) fontSet(ctx context.Context) *fonts.Set {
	c.mu.Lock()
	switch {
	case c.font != nil:
		set := c.font
		c.mu.Unlock()
		return set
	case c.fallback != nil && c.now().Before(c.retryAt):
		set := c.fallback
		c.mu.Unlock()
		return set
	}
	c.mu.Unlock()

	// Resolve may fetch over the network; it runs without the lock.
	set := fonts.Resolve(ctx, c.fonts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if set.Custom || c.fonts == nil {
		c.font = set
	} else {
		c.fallback = set
		c.retryAt = c.now().Add(fontRetryAfter)
	}
	return set
}

// drawRun paints the blurred shadow and then the text itself.
func drawRun(dst *image.NRGBA, set *fonts.Set, run textRun, fill color.Color) (*image.NRGBA, error) {
	face, err := set.Face(run.Anchor.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	b := dst.Bounds()
	spacing := run.Anchor.LetterSpacing * run.Anchor.FontSize

	shadow := gg.NewContext(b.Dx(), b.Dy())
	shadow.SetFontFace(face)
	shadow.SetColor(shadowColor)
	drawSpaced(shadow, face, run.Text, run.Anchor.X+shadowOffset, run.Anchor.Y+shadowOffset, spacing)
	dst = imaging.Overlay(dst, imaging.Blur(shadow.Image(), shadowSigma), image.Pt(0, 0), 1.0)

	text := gg.NewContextForImage(dst)
	text.SetFontFace(face)
	text.SetColor(fill)
	drawSpaced(text, face, run.Text, run.Anchor.X, run.Anchor.Y, spacing)
	return imaging.Clone(text.Image()), nil
}

// drawSpaced centres s on (x, y), adding spacing pixels between glyphs.
func drawSpaced(dc *gg.Context, face font.Face, s string, x, y, spacing float64) {
	runes := []rune(s)
	advances := make([]float64, len(runes))
	total := 0.0
	for i, r := range runes {
		adv, _ := face.GlyphAdvance(r)
		advances[i] = float64(adv) / 64
		total += advances[i]
	}
	if len(runes) > 1 {
		total += spacing * float64(len(runes)-1)
	}

	cursor := x - total/2
	for i, r := range runes {
		dc.DrawStringAnchored(string(r), cursor, y, 0, 0.5)
		cursor += advances[i] + spacing
	}
}

func decode(src []byte) (image.Image, error) {
	img, err := photo.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageLoad, err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
