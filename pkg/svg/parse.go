package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/geom"
)

// Parser parses SVG markup into a Document.
// The zero value is not usable; create one with NewParser.
type Parser struct {
	logger *log.Logger
}

// NewParser creates a parser. A nil logger discards element-level
// diagnostics (skipped tags, malformed but recoverable attributes).
func NewParser(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Parser{logger: logger}
}

// Parse is a convenience wrapper around NewParser(nil).Parse.
func Parse(data []byte) (*Document, error) {
	return NewParser(nil).Parse(data)
}

// Parse parses raw markup bytes into a Document.
//
// Malformed XML and malformed attribute values on supported elements are
// fatal PARSE_ERROR failures. Unknown tags are logged and skipped with
// their whole subtree. A document without drawable elements fails with
// EMPTY_DOCUMENT.
func (p *Parser) Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	doc := &Document{}
	ids := newIDAllocator()
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "malformed markup")
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return nil, errors.New(errors.ErrCodeParse, "root element must be <svg>, got <%s>", start.Name.Local)
		}
		sawRoot = true
		if err := p.parseRoot(dec, start, doc, ids); err != nil {
			return nil, err
		}
		break
	}

	if !sawRoot {
		return nil, errors.New(errors.ErrCodeParse, "no <svg> root element found")
	}
	if doc.DrawableCount() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyDocument, "document contains no drawable elements")
	}
	return doc, nil
}

// parseRoot resolves canvas dimensions and parses children of <svg>.
//
// Resolution rules, in order: an explicit viewBox defines the canvas; a
// missing viewBox falls back to width/height; missing both defaults to
// 0 0 300 150.
func (p *Parser) parseRoot(dec *xml.Decoder, start xml.StartElement, doc *Document, ids *idAllocator) error {
	var width, height float64
	var haveViewBox bool

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "width":
			if v, ok := parseLength(attr.Value); ok {
				width = v
			}
		case "height":
			if v, ok := parseLength(attr.Value); ok {
				height = v
			}
		case "viewBox":
			vb, err := parseViewBox(attr.Value)
			if err != nil {
				return err
			}
			doc.ViewBox = vb
			haveViewBox = true
		}
	}

	switch {
	case haveViewBox:
		if width == 0 {
			width = doc.ViewBox.Width
		}
		if height == 0 {
			height = doc.ViewBox.Height
		}
	case width > 0 && height > 0:
		doc.ViewBox = ViewBox{Width: width, Height: height}
	default:
		width, height = DefaultWidth, DefaultHeight
		doc.ViewBox = ViewBox{Width: width, Height: height}
	}
	doc.Width = geom.Round(width, CoordinateDigits)
	doc.Height = geom.Round(height, CoordinateDigits)

	elems, err := p.parseChildren(dec, ids)
	if err != nil {
		return err
	}
	doc.Elements = elems
	return nil
}

// parseChildren parses sibling elements until the enclosing end tag.
func (p *Parser) parseChildren(dec *xml.Decoder, ids *idAllocator) ([]Element, error) {
	var elems []Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return elems, nil
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, err, "malformed markup")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			elem, ok, err := p.parseElement(dec, t, ids)
			if err != nil {
				return nil, err
			}
			if ok {
				elems = append(elems, elem)
			}
		case xml.EndElement:
			return elems, nil
		}
	}
}

// parseElement parses one element and its subtree. ok is false when the
// tag is unsupported and was skipped.
func (p *Parser) parseElement(dec *xml.Decoder, start xml.StartElement, ids *idAllocator) (Element, bool, error) {
	kind, supported := kindForTag(start.Name.Local)
	if !supported {
		p.logger.Warn("skipping unsupported element",
			"tag", start.Name.Local,
			"code", errors.ErrCodeUnsupportedElement)
		if err := dec.Skip(); err != nil {
			return Element{}, false, errors.Wrap(errors.ErrCodeParse, err, "malformed markup in <%s>", start.Name.Local)
		}
		return Element{}, false, nil
	}

	elem := Element{
		Kind:      kind,
		Style:     defaultStyle(),
		Transform: geom.Identity(),
	}

	// The style attribute is applied last so inline declarations win over
	// presentation attributes regardless of attribute order.
	var explicitID, styleAttr string
	for _, attr := range start.Attr {
		if attr.Name.Local == "style" {
			styleAttr = attr.Value
			continue
		}
		if err := p.applyAttr(&elem, attr, &explicitID); err != nil {
			return Element{}, false, err
		}
	}
	if styleAttr != "" {
		if err := parseStyleAttr(&elem.Style, styleAttr); err != nil {
			return Element{}, false, err
		}
	}
	elem.ID = ids.assign(kind, explicitID)

	switch kind {
	case KindGroup:
		children, err := p.parseChildren(dec, ids)
		if err != nil {
			return Element{}, false, err
		}
		elem.Children = children
	case KindText:
		text, err := collectText(dec)
		if err != nil {
			return Element{}, false, err
		}
		elem.Text = text
		if elem.FontSize == 0 {
			elem.FontSize = 16 // SVG default medium font size
		}
	default:
		if err := dec.Skip(); err != nil {
			return Element{}, false, errors.Wrap(errors.ErrCodeParse, err, "malformed markup in <%s>", start.Name.Local)
		}
	}

	return elem, true, nil
}

// applyAttr applies a single attribute to elem. Geometry attributes that
// do not belong to elem's kind are ignored, matching browser behavior.
func (p *Parser) applyAttr(elem *Element, attr xml.Attr, explicitID *string) error {
	name := attr.Name.Local
	value := attr.Value

	// Attributes shared by every kind.
	switch name {
	case "id":
		*explicitID = strings.TrimSpace(value)
		return nil
	case "transform":
		t, err := parseTransform(value)
		if err != nil {
			return err
		}
		elem.Transform = t
		return nil
	case "style":
		return parseStyleAttr(&elem.Style, value)
	case "fill", "stroke", "stroke-width", "opacity":
		return applyStyleProperty(&elem.Style, name, value)
	}

	coord := func(dst *float64) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return errors.New(errors.ErrCodeParse, "invalid %s attribute %q", name, value)
		}
		*dst = geom.Round(v, CoordinateDigits)
		return nil
	}

	switch elem.Kind {
	case KindPath:
		if name == "d" {
			cmds, err := parsePathData(value)
			if err != nil {
				return err
			}
			elem.Path = cmds
		}
	case KindRect:
		switch name {
		case "x":
			return coord(&elem.X)
		case "y":
			return coord(&elem.Y)
		case "width":
			return coord(&elem.W)
		case "height":
			return coord(&elem.H)
		}
	case KindCircle:
		switch name {
		case "cx":
			return coord(&elem.CX)
		case "cy":
			return coord(&elem.CY)
		case "r":
			if err := coord(&elem.RX); err != nil {
				return err
			}
			elem.RY = elem.RX
		}
	case KindEllipse:
		switch name {
		case "cx":
			return coord(&elem.CX)
		case "cy":
			return coord(&elem.CY)
		case "rx":
			return coord(&elem.RX)
		case "ry":
			return coord(&elem.RY)
		}
	case KindPolygon:
		if name == "points" {
			pts, err := parsePoints(value)
			if err != nil {
				return err
			}
			elem.Points = pts
		}
	case KindLine:
		switch name {
		case "x1":
			return coord(&elem.X1)
		case "y1":
			return coord(&elem.Y1)
		case "x2":
			return coord(&elem.X2)
		case "y2":
			return coord(&elem.Y2)
		}
	case KindText:
		switch name {
		case "x":
			return coord(&elem.X)
		case "y":
			return coord(&elem.Y)
		case "font-size":
			if v, ok := parseLength(value); ok {
				elem.FontSize = geom.Round(v, CoordinateDigits)
			}
		}
	}
	return nil
}

// kindForTag maps a tag name onto the closed element kind set.
func kindForTag(tag string) (Kind, bool) {
	switch tag {
	case "path":
		return KindPath, true
	case "rect":
		return KindRect, true
	case "circle":
		return KindCircle, true
	case "ellipse":
		return KindEllipse, true
	case "polygon":
		return KindPolygon, true
	case "line":
		return KindLine, true
	case "text":
		return KindText, true
	case "g":
		return KindGroup, true
	default:
		return 0, false
	}
}

// collectText gathers the character data of a text element, descending
// through nested spans, until the element's end tag.
func collectText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeParse, err, "malformed markup in <text>")
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.TrimSpace(sb.String()), nil
			}
			depth--
		}
	}
}

// parsePoints parses a polygon points attribute.
func parsePoints(attr string) ([]geom.Point, error) {
	fields := strings.FieldsFunc(attr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields)%2 != 0 {
		return nil, errors.New(errors.ErrCodeParse, "polygon points attribute has odd coordinate count %d", len(fields))
	}
	pts := make([]geom.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeParse, "invalid polygon coordinate %q", fields[i])
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeParse, "invalid polygon coordinate %q", fields[i+1])
		}
		pts = append(pts, geom.Point{
			X: geom.Round(x, CoordinateDigits),
			Y: geom.Round(y, CoordinateDigits),
		})
	}
	return pts, nil
}

// parseLength parses a length attribute, tolerating a px suffix.
// Percentages and other units are reported as absent.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// parseViewBox parses a "minX minY width height" viewBox attribute.
func parseViewBox(s string) (ViewBox, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, errors.New(errors.ErrCodeParse, "viewBox expects 4 values, got %d", len(fields))
	}
	var vals [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return ViewBox{}, errors.New(errors.ErrCodeParse, "invalid viewBox value %q", f)
		}
		vals[i] = geom.Round(v, CoordinateDigits)
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return ViewBox{}, errors.New(errors.ErrCodeParse, "viewBox dimensions must be positive, got %s", s)
	}
	return ViewBox{MinX: vals[0], MinY: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// idAllocator assigns unique, deterministic element ids in document
// order. Explicit ids win; collisions and generated ids get a per-tag
// ordinal suffix.
type idAllocator struct {
	counters map[Kind]int
	used     map[string]bool
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		counters: make(map[Kind]int),
		used:     make(map[string]bool),
	}
}

func (a *idAllocator) assign(kind Kind, explicit string) string {
	if explicit != "" && !a.used[explicit] {
		a.used[explicit] = true
		return explicit
	}
	base := explicit
	if base == "" {
		base = kind.String()
	}
	for n := a.counters[kind] + 1; ; n++ {
		id := fmt.Sprintf("%s-%d", base, n)
		if !a.used[id] {
			a.counters[kind] = n
			a.used[id] = true
			return id
		}
	}
}
