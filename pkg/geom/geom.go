// Package geom provides the 2D and 3D math used across the conversion
// pipeline: points, affine transforms, curve flattening, polygon
// triangulation, and 4x4 matrices.
//
// All 2D coordinates are in document space (y-down, as parsed). The scene
// builder is responsible for mapping document space onto the 3D XY plane.
package geom

import "math"

// Point is a 2D point.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Lerp linearly interpolates between p and q at parameter t.
// t=0 returns p, t=1 returns q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
	}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Rect is an axis-aligned rectangle accumulated from points.
// The zero value is empty; use AddPoint to grow it.
type Rect struct {
	Min, Max Point
	ok       bool
}

// AddPoint grows the rectangle to contain p.
func (r *Rect) AddPoint(p Point) {
	if !r.ok {
		r.Min, r.Max = p, p
		r.ok = true
		return
	}
	r.Min.X = math.Min(r.Min.X, p.X)
	r.Min.Y = math.Min(r.Min.Y, p.Y)
	r.Max.X = math.Max(r.Max.X, p.X)
	r.Max.Y = math.Max(r.Max.Y, p.Y)
}

// Union grows the rectangle to contain other.
func (r *Rect) Union(other Rect) {
	if !other.ok {
		return
	}
	r.AddPoint(other.Min)
	r.AddPoint(other.Max)
}

// Empty reports whether no point was ever added.
func (r Rect) Empty() bool {
	return !r.ok
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	return r.Max.X - r.Min.X
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Round rounds v to the given number of decimal digits.
// Parsed coordinates are rounded to a fixed precision so that identical
// input bytes always produce identical documents.
func Round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
