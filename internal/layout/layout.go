// Package layout places the name and number of a customization on a canvas.
//
// Two modes exist. Template mode lays text out on the fixed print grid handed to
// the print shop: a 107px name band, a 50px spacer and a 354px number band on a
// 511px wide canvas. Composite mode lays the same text over a photograph of the
// shirt back, anchored at a fraction of the photo height.
package layout

import (
	"fmt"
	"math"
	"strings"

	"jerseyprint/internal/domain"
)

// Mode selects the coordinate system.
type Mode string

const (
	ModeTemplate  Mode = "template"
	ModeComposite Mode = "composite"
)

// ParseMode accepts "template" and "composite"; empty means template.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTemplate:
		return ModeTemplate, nil
	case ModeComposite:
		return ModeComposite, nil
	}
	return "", fmt.Errorf("%w: layout mode %q", domain.ErrInvalidInput, s)
}

// Spec holds the design constants of both modes.
type Spec struct {
	// Template canvas.
	Width  float64
	Height float64

	// Template bands, top to bottom. Their sum is the grid height.
	NameArea   float64
	Spacer     float64
	NumberArea float64

	NameFontSize   float64
	NumberFontSize float64

	// Letter spacing in em.
	NameLetterSpacing   float64
	NumberLetterSpacing float64

	NameWeight   int
	NumberWeight int

	// Composite mode: the number is centred at AnchorFraction of the image
	// height, the name NameOffsetFraction of the image width above it.
	AnchorFraction     float64
	NumberFontFraction float64
	NameFontFraction   float64
	NameOffsetFraction float64
}

// Default is the jersey print grid. The same composite anchor is used by the
// preview, the PNG compositor and the SVG exporter.
var Default = Spec{
	Width:               511,
	Height:              438,
	NameArea:            107,
	Spacer:              50,
	NumberArea:          354,
	NameFontSize:        80,
	NumberFontSize:      280,
	NameLetterSpacing:   0.15,
	NumberLetterSpacing: 0.1,
	NameWeight:          700,
	NumberWeight:        900,
	AnchorFraction:      0.40,
	NumberFontFraction:  0.12,
	NameFontFraction:    0.05,
	NameOffsetFraction:  0.08,
}

// GridHeight is the height covered by the three template bands.
func (s Spec) GridHeight() float64 {
	return s.NameArea + s.Spacer + s.NumberArea
}

// Anchor is the centre point of one text run.
type Anchor struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	FontSize      float64 `json:"fontSize"`
	LetterSpacing float64 `json:"letterSpacing"`
	Weight        int     `json:"weight"`
}

// Area is a guide rectangle clipped to the canvas. DesignHeight is the
// unclipped band height.
type Area struct {
	Label        string  `json:"label"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	DesignHeight float64 `json:"designHeight"`
}

// Layout is the result of Compute.
type Layout struct {
	Mode   Mode   `json:"mode"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   Anchor `json:"name"`
	Number Anchor `json:"number"`
	Areas  []Area `json:"areas"`
}

// Compute lays out with Default.
func Compute(width, height int, mode Mode) (Layout, error) {
	return Default.Compute(width, height, mode)
}

// Compute returns the anchors for a canvas of the given size. Anchors always
// lie within the canvas.
func (s Spec) Compute(width, height int, mode Mode) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("%w: %dx%d", domain.ErrInvalidDimension, width, height)
	}
	switch mode {
	case ModeTemplate:
		return s.template(width, height), nil
	case ModeComposite:
		return s.composite(width, height), nil
	}
	return Layout{}, fmt.Errorf("%w: layout mode %q", domain.ErrInvalidInput, mode)
}

func (s Spec) template(width, height int) Layout {
	w, h := float64(width), float64(height)
	cx := w / 2

	nameTop := 0.0
	spacerTop := s.NameArea
	numberTop := s.NameArea + s.Spacer

	return Layout{
		Mode:   ModeTemplate,
		Width:  width,
		Height: height,
		Name: Anchor{
			X:             cx,
			Y:             clamp(nameTop+s.NameArea/2, h),
			FontSize:      s.NameFontSize,
			LetterSpacing: s.NameLetterSpacing,
			Weight:        s.NameWeight,
		},
		Number: Anchor{
			X:             cx,
			Y:             clamp(numberTop+s.NumberArea/2, h),
			FontSize:      s.NumberFontSize,
			LetterSpacing: s.NumberLetterSpacing,
			Weight:        s.NumberWeight,
		},
		Areas: []Area{
			band("Name Area", w, h, nameTop, s.NameArea),
			band("Space", w, h, spacerTop, s.Spacer),
			band("Number Area", w, h, numberTop, s.NumberArea),
		},
	}
}

func (s Spec) composite(width, height int) Layout {
	w, h := float64(width), float64(height)
	cx := w / 2

	numberSize := w * s.NumberFontFraction
	nameSize := w * s.NameFontFraction
	numberY := clamp(h*s.AnchorFraction, h)
	nameY := clamp(numberY-w*s.NameOffsetFraction, h)

	return Layout{
		Mode:   ModeComposite,
		Width:  width,
		Height: height,
		Name: Anchor{
			X:             cx,
			Y:             nameY,
			FontSize:      nameSize,
			LetterSpacing: s.NameLetterSpacing,
			Weight:        s.NameWeight,
		},
		Number: Anchor{
			X:             cx,
			Y:             numberY,
			FontSize:      numberSize,
			LetterSpacing: s.NumberLetterSpacing,
			Weight:        s.NumberWeight,
		},
		Areas: []Area{
			band("Name Area", w, h, nameY-nameSize/2, nameSize),
			band("Number Area", w, h, numberY-numberSize/2, numberSize),
		},
	}
}

// band is a full-width rectangle clipped to the canvas.
func band(label string, w, h, top, height float64) Area {
	y0 := clamp(top, h)
	y1 := clamp(top+height, h)
	return Area{Label: label, X: 0, Y: y0, Width: w, Height: y1 - y0, DesignHeight: height}
}

func clamp(v, limit float64) float64 {
	return math.Min(math.Max(v, 0), limit)
}
