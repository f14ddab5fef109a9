package geom

import "math"

// Affine is a 2D affine transform.
//
// The matrix is stored in SVG order:
//
//	| A C E |
//	| B D F |
//	| 0 0 1 |
//
// so Apply(p) = (A*x + C*y + E, B*x + D*y + F).
type Affine struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, D: 1}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Affine {
	return Affine{A: 1, D: 1, E: tx, F: ty}
}

// Scale returns a scale by (sx, sy).
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, D: sy}
}

// Rotate returns a rotation by deg degrees around the origin.
// Positive angles rotate clockwise in document space (y-down).
func Rotate(deg float64) Affine {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Affine{A: cos, B: sin, C: -sin, D: cos}
}

// RotateAround returns a rotation by deg degrees around (cx, cy).
func RotateAround(deg, cx, cy float64) Affine {
	return Translate(cx, cy).Mul(Rotate(deg)).Mul(Translate(-cx, -cy))
}

// SkewX returns a shear along the x axis by deg degrees.
func SkewX(deg float64) Affine {
	return Affine{A: 1, D: 1, C: math.Tan(deg * math.Pi / 180)}
}

// SkewY returns a shear along the y axis by deg degrees.
func SkewY(deg float64) Affine {
	return Affine{A: 1, D: 1, B: math.Tan(deg * math.Pi / 180)}
}

// Mul returns the composition t * u: u is applied first, then t.
// Nested document transforms compose by multiplying the parent transform
// on the left.
func (t Affine) Mul(u Affine) Affine {
	return Affine{
		A: t.A*u.A + t.C*u.B,
		B: t.B*u.A + t.D*u.B,
		C: t.A*u.C + t.C*u.D,
		D: t.B*u.C + t.D*u.D,
		E: t.A*u.E + t.C*u.F + t.E,
		F: t.B*u.E + t.D*u.F + t.F,
	}
}

// Apply transforms the point p.
func (t Affine) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.E,
		Y: t.B*p.X + t.D*p.Y + t.F,
	}
}

// IsIdentity reports whether t is exactly the identity transform.
func (t Affine) IsIdentity() bool {
	return t == Identity()
}
