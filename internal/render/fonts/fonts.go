// Package fonts loads the decoration font used on shirt backs.
//
// The font file is a static resource reachable by a local path or an http(s)
// URL. When it is missing the raster path falls back to the embedded Go Bold
// face and the vector path omits the @font-face block.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/infra/logging"
)

// ErrNoFont signals that no font location was configured.
var ErrNoFont = errors.New("no font configured")

// Provider reads the font resource once and keeps the bytes.
type Provider struct {
	location string
	fetcher  domain.Fetcher

	mu   sync.Mutex
	data []byte
}

// NewProvider serves the font at location, a file path or an http(s) URL.
func NewProvider(location string, fetcher domain.Fetcher) *Provider {
	return &Provider{location: strings.TrimSpace(location), fetcher: fetcher}
}

// Bytes returns the raw font file. Failures are not cached.
func (p *Provider) Bytes(ctx context.Context) ([]byte, error) {
	if p == nil || p.location == "" {
		return nil, ErrNoFont
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data != nil {
		return p.data, nil
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(p.location, "http://") || strings.HasPrefix(p.location, "https://") {
		if p.fetcher == nil {
			return nil, fmt.Errorf("font %s: %w", p.location, domain.ErrNotConfigured)
		}
		data, err = p.fetcher.Get(ctx, p.location)
	} else {
		data, err = os.ReadFile(p.location)
	}
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", p.location, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("font %s: empty file", p.location)
	}
	p.data = data
	return data, nil
}

// Set is a parsed font able to produce faces at any size.
type Set struct {
	font *opentype.Font
	// Custom is false when the embedded fallback is in use.
	Custom bool
}

// Parse parses TrueType/OpenType bytes.
func Parse(data []byte) (*Set, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Set{font: f, Custom: true}, nil
}

// Fallback returns the embedded Go Bold font.
func Fallback() *Set {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("fonts: embedded gobold: %v", err))
	}
	return &Set{font: f}
}

// Resolve loads the configured font, falling back to Go Bold with a warning.
func Resolve(ctx context.Context, src domain.FontSource) *Set {
	if src == nil {
		return Fallback()
	}
	data, err := src.Bytes(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoFont) {
			logging.Warn("Font unavailable, using fallback", "error", err)
		}
		return Fallback()
	}
	set, err := Parse(data)
	if err != nil {
		logging.Warn("Font unreadable, using fallback", "error", err)
		return Fallback()
	}
	return set
}

// Face returns a face where one point equals one pixel.
func (s *Set) Face(size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: font size %.2f", domain.ErrInvalidDimension, size)
	}
	face, err := opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at %.1fpx: %w", size, err)
	}
	return face, nil
}
