package svg

import (
	"github.com/echiweshe/sceneforge/pkg/geom"
)

// EllipseSegments is the fixed angular resolution used when flattening
// circles and ellipses radially into outlines.
const EllipseSegments = 64

// Outlines flattens the element's geometry into closed outlines in the
// element's local coordinate space, not including its transform. Curves
// are flattened within tol (DefaultTolerance when tol <= 0).
//
// Line and text elements produce no outlines here: they have no closed
// fill geometry of their own, and the scene builder derives their meshes
// (stroke quad, placeholder text quad) directly.
func (e *Element) Outlines(tol float64) [][]geom.Point {
	switch e.Kind {
	case KindPath:
		return pathOutlines(e.Path, tol)

	case KindRect:
		if e.W <= 0 || e.H <= 0 {
			return nil
		}
		return [][]geom.Point{{
			{X: e.X, Y: e.Y},
			{X: e.X + e.W, Y: e.Y},
			{X: e.X + e.W, Y: e.Y + e.H},
			{X: e.X, Y: e.Y + e.H},
		}}

	case KindCircle, KindEllipse:
		if e.RX <= 0 || e.RY <= 0 {
			return nil
		}
		return [][]geom.Point{
			geom.Ellipse(nil, geom.Point{X: e.CX, Y: e.CY}, e.RX, e.RY, EllipseSegments),
		}

	case KindPolygon:
		if len(e.Points) < 3 {
			return nil
		}
		outline := make([]geom.Point, len(e.Points))
		copy(outline, e.Points)
		return [][]geom.Point{outline}

	default:
		return nil
	}
}

// pathOutlines converts a command list into closed outlines. Each moveto
// starts a new subpath; subpaths are treated as closed outlines whether
// or not an explicit closepath terminates them, since extrusion requires
// a closed profile.
func pathOutlines(cmds []PathCommand, tol float64) [][]geom.Point {
	var outlines [][]geom.Point
	var cur []geom.Point
	var pos geom.Point

	flush := func() {
		if len(cur) >= 3 {
			outlines = append(outlines, cur)
		}
		cur = nil
	}

	for _, c := range cmds {
		switch c.Op {
		case OpMove:
			flush()
			pos = c.P1
			cur = append(cur, pos)
		case OpLine:
			cur = append(cur, c.P1)
			pos = c.P1
		case OpCubic:
			cur = geom.FlattenCubic(cur, pos, c.C1, c.C2, c.P1, tol)
			pos = c.P1
		case OpQuad:
			cur = geom.FlattenQuad(cur, pos, c.C1, c.P1, tol)
			pos = c.P1
		case OpArc:
			cur = geom.FlattenArc(cur, pos, c.P1, c.RX, c.RY, c.Rot, c.LargeArc, c.Sweep, tol)
			pos = c.P1
		case OpClose:
			if len(cur) > 0 {
				pos = cur[0]
			}
			flush()
		}
	}
	flush()

	// Drop duplicated closing points so outlines never repeat the start.
	for i, o := range outlines {
		if len(o) > 1 && o[0] == o[len(o)-1] {
			outlines[i] = o[:len(o)-1]
		}
	}
	return outlines
}
