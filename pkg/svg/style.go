package svg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/echiweshe/sceneforge/pkg/errors"
)

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Style is the resolved presentation style of an element.
// Fill and Stroke are nil when absent or explicitly "none".
type Style struct {
	Fill        *Color
	Stroke      *Color
	StrokeWidth float64
	Opacity     float64
}

// defaultStyle returns the style applied before any attribute is read.
// SVG paints elements black by default; opacity and stroke width are 1.
func defaultStyle() Style {
	return Style{
		Fill:        &Color{},
		StrokeWidth: 1,
		Opacity:     1,
	}
}

// namedColors is the supported subset of SVG color keywords.
var namedColors = map[string]Color{
	"black":   {0, 0, 0},
	"white":   {1, 1, 1},
	"red":     {1, 0, 0},
	"green":   {0, 0.5, 0},
	"lime":    {0, 1, 0},
	"blue":    {0, 0, 1},
	"yellow":  {1, 1, 0},
	"cyan":    {0, 1, 1},
	"magenta": {1, 0, 1},
	"gray":    {0.5, 0.5, 0.5},
	"grey":    {0.5, 0.5, 0.5},
	"orange":  {1, 0.647059, 0},
	"purple":  {0.5, 0, 0.5},
	"silver":  {0.752941, 0.752941, 0.752941},
}

// parseColor parses a paint value. Returns nil for "none".
// Supported forms: #rgb, #rrggbb, rgb(r, g, b), and a keyword subset.
func parseColor(s string) (*Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "none" || s == "transparent":
		return nil, nil

	case strings.HasPrefix(s, "#"):
		return parseHexColor(s[1:])

	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGBColor(s[4 : len(s)-1])

	default:
		if c, ok := namedColors[s]; ok {
			return &c, nil
		}
		return nil, errors.New(errors.ErrCodeParse, "unsupported color %q", s)
	}
}

func parseHexColor(hex string) (*Color, error) {
	var r, g, b uint64
	var err error
	switch len(hex) {
	case 3:
		if r, err = strconv.ParseUint(strings.Repeat(hex[0:1], 2), 16, 8); err != nil {
			break
		}
		if g, err = strconv.ParseUint(strings.Repeat(hex[1:2], 2), 16, 8); err != nil {
			break
		}
		b, err = strconv.ParseUint(strings.Repeat(hex[2:3], 2), 16, 8)
	case 6:
		if r, err = strconv.ParseUint(hex[0:2], 16, 8); err != nil {
			break
		}
		if g, err = strconv.ParseUint(hex[2:4], 16, 8); err != nil {
			break
		}
		b, err = strconv.ParseUint(hex[4:6], 16, 8)
	default:
		err = fmt.Errorf("hex color must have 3 or 6 digits")
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeParse, "invalid hex color #%s", hex)
	}
	return &Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}

func parseRGBColor(body string) (*Color, error) {
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return nil, errors.New(errors.ErrCodeParse, "invalid rgb() color %q", body)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeParse, "invalid rgb() component %q", p)
		}
		vals[i] = clamp01(v / 255)
	}
	return &Color{R: vals[0], G: vals[1], B: vals[2]}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// applyStyleProperty sets a single presentation property on st.
// Unknown properties are ignored; malformed values of known properties
// are parse errors.
func applyStyleProperty(st *Style, name, value string) error {
	switch strings.TrimSpace(name) {
	case "fill":
		c, err := parseColor(value)
		if err != nil {
			return err
		}
		st.Fill = c
	case "stroke":
		c, err := parseColor(value)
		if err != nil {
			return err
		}
		st.Stroke = c
	case "stroke-width":
		w, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "px"), 64)
		if err != nil {
			return errors.New(errors.ErrCodeParse, "invalid stroke-width %q", value)
		}
		st.StrokeWidth = w
	case "opacity":
		o, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return errors.New(errors.ErrCodeParse, "invalid opacity %q", value)
		}
		st.Opacity = clamp01(o)
	}
	return nil
}

// parseStyleAttr applies the declarations of an inline style="..."
// attribute. Inline declarations win over presentation attributes, so this
// runs after the attribute pass.
func parseStyleAttr(st *Style, attr string) error {
	for _, decl := range strings.Split(attr, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			return errors.New(errors.ErrCodeParse, "invalid style declaration %q", decl)
		}
		if err := applyStyleProperty(st, name, value); err != nil {
			return err
		}
	}
	return nil
}
