// Package svg parses SVG markup into a structured vector document.
//
// The parser produces a [Document]: canvas dimensions, a viewBox, and an
// ordered tree of [Element] values drawn from a closed set of kinds
// (path, rect, circle, ellipse, polygon, line, text, group). Each element
// carries a resolved style, a local affine transform, and a stable id.
//
// # Determinism
//
// Parsing is deterministic: identical input bytes always yield an
// identical Document, including generated ids, rounded coordinates, and
// element ordering. All numeric coordinates are rounded to
// [CoordinateDigits] decimal digits.
//
// # Failure modes
//
// Malformed markup or malformed path data is a fatal PARSE_ERROR. Unknown
// tags are logged and skipped (UNSUPPORTED_ELEMENT, recoverable). A
// document with no drawable elements is a fatal EMPTY_DOCUMENT.
package svg

import (
	"github.com/echiweshe/sceneforge/pkg/geom"
)

// CoordinateDigits is the fixed decimal precision applied to every parsed
// coordinate. Rounding at parse time guarantees reproducible documents
// and, downstream, reproducible scenes.
const CoordinateDigits = 6

// Default canvas size when neither viewBox nor width/height are present,
// matching the SVG intrinsic default of 300x150.
const (
	DefaultWidth  = 300
	DefaultHeight = 150
)

// Kind identifies the variant of an Element. The set is closed: dispatch
// over kinds uses exhaustive switches, never tag-name strings.
type Kind int

const (
	KindPath Kind = iota
	KindRect
	KindCircle
	KindEllipse
	KindPolygon
	KindLine
	KindText
	KindGroup
)

// String returns the source tag name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindRect:
		return "rect"
	case KindCircle:
		return "circle"
	case KindEllipse:
		return "ellipse"
	case KindPolygon:
		return "polygon"
	case KindLine:
		return "line"
	case KindText:
		return "text"
	case KindGroup:
		return "g"
	default:
		return "unknown"
	}
}

// ViewBox is the coordinate-system declaration of the canvas.
type ViewBox struct {
	MinX, MinY    float64
	Width, Height float64
}

// Document is a parsed vector document. It is created once per input and
// immutable thereafter.
type Document struct {
	Width    float64
	Height   float64
	ViewBox  ViewBox
	Elements []Element
}

// DrawableCount returns the number of drawable (non-group) elements in
// the document, descending into groups.
func (d *Document) DrawableCount() int {
	n := 0
	for i := range d.Elements {
		n += d.Elements[i].drawableCount()
	}
	return n
}

// Element is one node of the document tree. Only the fields matching Kind
// are populated.
type Element struct {
	ID        string
	Kind      Kind
	Style     Style
	Transform geom.Affine

	// KindPath
	Path []PathCommand

	// KindRect
	X, Y, W, H float64

	// KindCircle / KindEllipse (a circle has RX == RY)
	CX, CY, RX, RY float64

	// KindPolygon
	Points []geom.Point

	// KindLine
	X1, Y1, X2, Y2 float64

	// KindText
	Text     string
	FontSize float64

	// KindGroup
	Children []Element
}

func (e *Element) drawableCount() int {
	if e.Kind != KindGroup {
		return 1
	}
	n := 0
	for i := range e.Children {
		n += e.Children[i].drawableCount()
	}
	return n
}

// Op is a path-drawing operation. All commands in a parsed document are
// absolute: the tokenizer resolves relative forms during parsing.
type Op byte

const (
	OpMove  Op = 'M'
	OpLine  Op = 'L'
	OpCubic Op = 'C'
	OpQuad  Op = 'Q'
	OpArc   Op = 'A'
	OpClose Op = 'Z'
)

// PathCommand is a single absolute path command.
//
// Usage of the point slots by op:
//
//	OpMove, OpLine: P1 is the target point
//	OpCubic:        C1, C2 are control points, P1 the target
//	OpQuad:         C1 is the control point, P1 the target
//	OpArc:          P1 is the target; RX, RY, Rot, LargeArc, Sweep apply
//	OpClose:        no fields
type PathCommand struct {
	Op       Op
	C1, C2   geom.Point
	P1       geom.Point
	RX, RY   float64
	Rot      float64
	LargeArc bool
	Sweep    bool
}
