package render

import (
	"math"

	"github.com/echiweshe/sceneforge/pkg/geom"
)

// fovY is the fixed vertical field of view in radians (45 degrees).
const fovY = math.Pi / 4

// fitMargin keeps 10% of the frame free around the scene's bounding
// sphere so geometry never touches the frame edge.
const fitMargin = 1.1

// camera is a perspective camera on the +Z axis looking toward -Z.
// Framing is deterministic: the same scene bounds and frame size always
// produce the same camera.
type camera struct {
	pos        geom.Vec3
	tanX, tanY float64
	w, h       int
}

// fitCamera places the camera so the axis-aligned bounds fit the frame
// with the fixed margin.
func fitCamera(min, max geom.Vec3, w, h int) camera {
	c := min.Add(max).Mulf(0.5)
	r := max.Sub(min).Len() / 2
	if r == 0 {
		r = 1
	}

	tanY := math.Tan(fovY / 2)
	tanX := tanY * float64(w) / float64(h)
	dist := r*fitMargin/math.Min(tanX, tanY) + r

	return camera{
		pos:  geom.Vec3{X: c.X, Y: c.Y, Z: c.Z + dist},
		tanX: tanX,
		tanY: tanY,
		w:    w,
		h:    h,
	}
}

// project maps a world point onto pixel coordinates plus its view depth.
// ok is false behind the near plane.
func (c camera) project(v geom.Vec3) (x, y, depth float64, ok bool) {
	depth = c.pos.Z - v.Z
	if depth <= 1e-9 {
		return 0, 0, 0, false
	}
	ndcX := (v.X - c.pos.X) / (depth * c.tanX)
	ndcY := (v.Y - c.pos.Y) / (depth * c.tanY)
	x = (ndcX + 1) / 2 * float64(c.w)
	y = (1 - ndcY) / 2 * float64(c.h)
	return x, y, depth, true
}
