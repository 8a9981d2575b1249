// Package vector writes print-ready SVG documents for a customization.
//
// Text stays native <text> so the print shop can rescale it. The decoration
// font is embedded when available; the base photograph of the composite mode
// is always embedded.
package vector

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	svg "github.com/ajstarks/svgo"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/layout"
	"jerseyprint/internal/render/fonts"
	"jerseyprint/internal/render/photo"
)

const (
	TemplateFilename  = "jersey-template.svg"
	CompositeFilename = "jersey-composite.svg"

	fallbackFamily = "Arial, sans-serif"
)

// Options tunes the output document.
type Options struct {
	// Guides draws the layout bands as dashed rectangles.
	Guides bool
}

// Exporter renders SVG artifacts.
type Exporter struct {
	fonts   domain.FontSource
	fetcher domain.Fetcher
	limits  domain.Limits
	family  string
	spec    layout.Spec
}

// New returns an exporter. family names the embedded font face, e.g. "KidsTee".
func New(fontSource domain.FontSource, fetcher domain.Fetcher, limits domain.Limits, family string) *Exporter {
	family = cleanFamily(family)
	if family == "" {
		family = "KidsTee"
	}
	return &Exporter{
		fonts:   fontSource,
		fetcher: fetcher,
		limits:  limits,
		family:  family,
		spec:    layout.Default,
	}
}

// Template renders the transparent 511x438 print template.
func (e *Exporter) Template(ctx context.Context, cust domain.Customization, opts Options) (domain.Artifact, error) {
	cust, err := cust.Normalize(e.limits)
	if err != nil {
		return domain.Artifact{}, err
	}
	l, err := e.spec.Compute(int(e.spec.Width), int(e.spec.Height), layout.ModeTemplate)
	if err != nil {
		return domain.Artifact{}, err
	}

	doc := document{layout: l, cust: cust, guides: opts.Guides}
	doc.font = e.embedFont(ctx)
	if doc.font != "" {
		doc.family = e.family
	}
	return doc.artifact(TemplateFilename), nil
}

// Composite renders the customization over the photograph at url. The
// document takes the native pixel size of the photograph. Failing to fetch
// or decode the photograph fails the export.
func (e *Exporter) Composite(ctx context.Context, url string, cust domain.Customization, opts Options) (domain.Artifact, error) {
	cust, err := cust.Normalize(e.limits)
	if err != nil {
		return domain.Artifact{}, err
	}
	if e.fetcher == nil {
		return domain.Artifact{}, fmt.Errorf("image fetcher: %w", domain.ErrNotConfigured)
	}

	data, err := e.fetcher.Get(ctx, url)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: %w", domain.ErrImageFetch, err)
	}
	data, width, height, err := photo.Upright(data)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%w: decode %s: %v", domain.ErrImageFetch, url, err)
	}

	l, err := e.spec.Compute(width, height, layout.ModeComposite)
	if err != nil {
		return domain.Artifact{}, err
	}

	doc := document{layout: l, cust: cust, guides: opts.Guides, image: dataURI(data)}
	doc.font = e.embedFont(ctx)
	if doc.font != "" {
		doc.family = e.family
	}
	return doc.artifact(CompositeFilename), nil
}

// embedFont returns the font as a data URI, or "" when it cannot be loaded.
func (e *Exporter) embedFont(ctx context.Context) string {
	if e.fonts == nil {
		return ""
	}
	data, err := e.fonts.Bytes(ctx)
	if err != nil {
		if !errors.Is(err, fonts.ErrNoFont) {
			logging.Warn("Failed to load font for embedding", "error", err)
		}
		return ""
	}
	return "data:font/ttf;base64," + base64.StdEncoding.EncodeToString(data)
}

func dataURI(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

type document struct {
	layout layout.Layout
	cust   domain.Customization
	guides bool

	image  string
	font   string
	family string
}

var guideStrokes = []string{"#00ff00", "#ffff00", "#ff0000"}

func (d document) artifact(filename string) domain.Artifact {
	var buf bytes.Buffer
	d.write(&buf)
	return domain.Artifact{
		Data:        buf.Bytes(),
		ContentType: domain.ContentTypeSVG,
		Filename:    filename,
		Width:       d.layout.Width,
		Height:      d.layout.Height,
	}
}

func (d document) write(buf *bytes.Buffer) {
	w, h := d.layout.Width, d.layout.Height
	canvas := svg.New(buf)
	canvas.Start(w, h)

	canvas.Def()
	if d.font != "" {
		canvas.Style("text/css", fmt.Sprintf(
			"@font-face { font-family: '%s'; src: url(%s) format('truetype'); font-weight: normal; font-style: normal; }",
			d.family, d.font))
	}
	canvas.DefEnd()

	if d.image != "" {
		canvas.Image(0, 0, w, h, d.image)
	} else {
		canvas.Rect(0, 0, w, h, `fill="none"`)
	}

	if d.guides {
		canvas.Group(`id="area-guides"`, `opacity="0.2"`)
		for i, a := range d.layout.Areas {
			stroke := guideStrokes[i%len(guideStrokes)]
			canvas.Rect(round(a.X), round(a.Y), round(a.Width), round(a.Height),
				`fill="none"`, fmt.Sprintf(`stroke="%s"`, stroke), `stroke-width="1"`, `stroke-dasharray="5,5"`)
			canvas.Text(10, round(a.Y)+15,
				fmt.Sprintf("%s: %s×%dpx", a.Label, num(a.DesignHeight), w),
				`font-size="12"`, fmt.Sprintf(`fill="%s"`, stroke))
		}
		canvas.Gend()
	}

	family := fallbackFamily
	if d.family != "" {
		family = d.family + ", " + fallbackFamily
	}
	if d.cust.Number != "" {
		d.text(canvas, d.cust.Number, d.layout.Number, family, "drop-shadow(2px 2px 4px rgba(0,0,0,0.5))")
	}
	if d.cust.Name != "" {
		d.text(canvas, d.cust.Name, d.layout.Name, family, "drop-shadow(1px 1px 3px rgba(0,0,0,0.5))")
	}

	canvas.End()
}

// text places s centred on a. svgo only takes integer coordinates, so the
// anchor goes into a translate on the enclosing group.
func (d document) text(canvas *svg.SVG, s string, a layout.Anchor, family, shadow string) {
	canvas.Gtransform(fmt.Sprintf("translate(%s,%s)", num(a.X), num(a.Y)))
	canvas.Text(0, 0, s,
		fmt.Sprintf(`font-family="%s"`, family),
		fmt.Sprintf(`font-size="%s"`, num(a.FontSize)),
		fmt.Sprintf(`font-weight="%d"`, a.Weight),
		fmt.Sprintf(`fill="%s"`, d.cust.TextColor),
		`text-anchor="middle"`,
		`dominant-baseline="middle"`,
		fmt.Sprintf(`letter-spacing="%sem"`, num(a.LetterSpacing)),
		"filter: "+shadow,
	)
	canvas.Gend()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

// cleanFamily keeps the characters a CSS family name needs unquoted.
func cleanFamily(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			return r
		}
		return -1
	}, s))
}
