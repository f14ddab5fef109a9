package geom

import "math"

// DefaultTolerance is the maximum deviation, in document units, between a
// curve and its flattened polyline approximation.
const DefaultTolerance = 0.1

// maxDepth bounds recursive subdivision for pathological control points.
const maxDepth = 24

// FlattenQuad appends a polyline approximation of the quadratic Bezier
// (p0, c, p1) to dst, excluding p0 and including p1.
func FlattenQuad(dst []Point, p0, c, p1 Point, tol float64) []Point {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return flattenQuad(dst, p0, c, p1, tol, 0)
}

func flattenQuad(dst []Point, p0, c, p1 Point, tol float64, depth int) []Point {
	if depth >= maxDepth || quadFlat(p0, c, p1, tol) {
		return append(dst, p1)
	}
	// de Casteljau split at t = 0.5
	c0 := p0.Lerp(c, 0.5)
	c1 := c.Lerp(p1, 0.5)
	mid := c0.Lerp(c1, 0.5)
	dst = flattenQuad(dst, p0, c0, mid, tol, depth+1)
	return flattenQuad(dst, mid, c1, p1, tol, depth+1)
}

// quadFlat reports whether the control point deviates from the chord by
// less than tol.
func quadFlat(p0, c, p1 Point, tol float64) bool {
	dx := c.X - (p0.X+p1.X)/2
	dy := c.Y - (p0.Y+p1.Y)/2
	return dx*dx+dy*dy <= tol*tol
}

// FlattenCubic appends a polyline approximation of the cubic Bezier
// (p0, c1, c2, p1) to dst, excluding p0 and including p1.
func FlattenCubic(dst []Point, p0, c1, c2, p1 Point, tol float64) []Point {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return flattenCubic(dst, p0, c1, c2, p1, tol, 0)
}

func flattenCubic(dst []Point, p0, c1, c2, p1 Point, tol float64, depth int) []Point {
	if depth >= maxDepth || cubicFlat(p0, c1, c2, p1, tol) {
		return append(dst, p1)
	}
	// de Casteljau split at t = 0.5
	ab := p0.Lerp(c1, 0.5)
	bc := c1.Lerp(c2, 0.5)
	cd := c2.Lerp(p1, 0.5)
	abc := ab.Lerp(bc, 0.5)
	bcd := bc.Lerp(cd, 0.5)
	mid := abc.Lerp(bcd, 0.5)
	dst = flattenCubic(dst, p0, ab, abc, mid, tol, depth+1)
	return flattenCubic(dst, mid, bcd, cd, p1, tol, depth+1)
}

// cubicFlat reports whether both control points deviate from the chord by
// less than tol.
func cubicFlat(p0, c1, c2, p1 Point, tol float64) bool {
	d1x := c1.X - (2*p0.X+p1.X)/3
	d1y := c1.Y - (2*p0.Y+p1.Y)/3
	d2x := c2.X - (p0.X+2*p1.X)/3
	d2y := c2.Y - (p0.Y+2*p1.Y)/3
	return d1x*d1x+d1y*d1y <= tol*tol && d2x*d2x+d2y*d2y <= tol*tol
}

// FlattenArc appends a polyline approximation of an SVG endpoint arc from
// p0 to p1 to dst, excluding p0 and including p1.
//
// rx/ry are the ellipse radii, rot the x-axis rotation in degrees, and
// largeArc/sweep the standard arc flags. Per the SVG arc rules, radii are
// scaled up when no ellipse fits the endpoints, and a zero radius degrades
// to a straight line.
func FlattenArc(dst []Point, p0, p1 Point, rx, ry, rot float64, largeArc, sweep bool, tol float64) []Point {
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 || p0 == p1 {
		return append(dst, p1)
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	// Endpoint to center parameterization (SVG spec appendix B.2.4).
	phi := rot * math.Pi / 180
	sinPhi, cosPhi := math.Sincos(phi)

	dx2 := (p0.X - p1.X) / 2
	dy2 := (p0.Y - p1.Y) / 2
	x1p := cosPhi*dx2 + sinPhi*dy2
	y1p := -sinPhi*dx2 + cosPhi*dy2

	// Scale radii up if the endpoints cannot be connected.
	lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	co := 0.0
	if den != 0 && num > 0 {
		co = math.Sqrt(num / den)
	}
	if largeArc == sweep {
		co = -co
	}
	cxp := co * rx * y1p / ry
	cyp := -co * ry * x1p / rx

	cx := cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2

	theta1 := math.Atan2((y1p-cyp)/ry, (x1p-cxp)/rx)
	theta2 := math.Atan2((-y1p-cyp)/ry, (-x1p-cxp)/rx)
	dTheta := theta2 - theta1
	if sweep && dTheta < 0 {
		dTheta += 2 * math.Pi
	} else if !sweep && dTheta > 0 {
		dTheta -= 2 * math.Pi
	}

	// Segment count from the flatness tolerance on the larger radius.
	r := math.Max(rx, ry)
	maxAngle := 2 * math.Acos(math.Max(0, 1-tol/r))
	if maxAngle <= 0 {
		maxAngle = math.Pi / 16
	}
	segments := int(math.Ceil(math.Abs(dTheta) / maxAngle))
	if segments < 1 {
		segments = 1
	}

	for i := 1; i < segments; i++ {
		theta := theta1 + dTheta*float64(i)/float64(segments)
		sinT, cosT := math.Sincos(theta)
		dst = append(dst, Point{
			X: cx + rx*cosT*cosPhi - ry*sinT*sinPhi,
			Y: cy + rx*cosT*sinPhi + ry*sinT*cosPhi,
		})
	}
	return append(dst, p1)
}

// Ellipse appends a closed outline of the ellipse centered at c with radii
// (rx, ry) to dst, sampled radially with the given segment count. The
// outline runs clockwise in document space and does not repeat the first
// point.
func Ellipse(dst []Point, c Point, rx, ry float64, segments int) []Point {
	if segments < 3 {
		segments = 3
	}
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		sin, cos := math.Sincos(theta)
		dst = append(dst, Point{X: c.X + rx*cos, Y: c.Y + ry*sin})
	}
	return dst
}
