package domain

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultTextColor = "#ffffff"
	DefaultMaxName   = 20
	DefaultMaxNumber = 3
)

// Customization is the text a customer asks to have printed on the back of a shirt.
type Customization struct {
	Name      string `json:"name"`
	Number    string `json:"number"`
	TextColor string `json:"textColor"`
}

// Limits bounds the customization input.
type Limits struct {
	MaxName   int
	MaxNumber int
}

// DefaultLimits are the limits of the customize form.
func DefaultLimits() Limits {
	return Limits{MaxName: DefaultMaxName, MaxNumber: DefaultMaxNumber}
}

// Normalize returns the customization as it is rendered: the name trimmed,
// truncated and upper-cased, the number reduced to its digits and truncated,
// and the colour defaulted and canonicalised to lower-case hex.
func (c Customization) Normalize(l Limits) (Customization, error) {
	if l.MaxName <= 0 {
		l.MaxName = DefaultMaxName
	}
	if l.MaxNumber <= 0 {
		l.MaxNumber = DefaultMaxNumber
	}

	name := []rune(strings.TrimSpace(c.Name))
	if len(name) > l.MaxName {
		name = name[:l.MaxName]
	}

	digits := make([]rune, 0, l.MaxNumber)
	for _, r := range c.Number {
		if len(digits) == l.MaxNumber {
			break
		}
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}

	textColor := strings.TrimSpace(c.TextColor)
	if textColor == "" {
		textColor = DefaultTextColor
	}
	if _, err := ParseColor(textColor); err != nil {
		return Customization{}, err
	}

	return Customization{
		Name:      strings.ToUpper(string(name)),
		Number:    string(digits),
		TextColor: strings.ToLower(textColor),
	}, nil
}

// HasText reports whether anything would be drawn.
func (c Customization) HasText() bool {
	return c.Name != "" || c.Number != ""
}

// ParseColor accepts #rgb and #rrggbb.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == len(s) {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q must start with #", ErrInvalidInput, s)
	}
	for _, r := range hex {
		if !unicode.Is(unicode.ASCII_Hex_Digit, r) {
			return color.NRGBA{}, fmt.Errorf("%w: colour %q is not hex", ErrInvalidInput, s)
		}
	}
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.NRGBA{}, fmt.Errorf("%w: colour %q must have 3 or 6 hex digits", ErrInvalidInput, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: colour %q: %v", ErrInvalidInput, s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
