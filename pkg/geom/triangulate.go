package geom

import "math"

// degenerateArea is the area below which an outline is considered
// degenerate and skipped by the scene builder.
const degenerateArea = 1e-9

// SignedArea returns the signed area of the closed outline.
// Positive area means counter-clockwise winding in y-up coordinates
// (clockwise in document space).
func SignedArea(outline []Point) float64 {
	if len(outline) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range outline {
		q := outline[(i+1)%len(outline)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Degenerate reports whether the outline cannot produce usable geometry:
// fewer than three distinct vertices or near-zero enclosed area.
func Degenerate(outline []Point) bool {
	distinct := 0
	seen := make(map[Point]struct{}, len(outline))
	for _, p := range outline {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			distinct++
		}
	}
	if distinct < 3 {
		return true
	}
	return math.Abs(SignedArea(outline)) < degenerateArea
}

// Triangulate decomposes a simple polygon into triangles by ear clipping
// and returns index triples into the outline. The winding of the input is
// normalized internally; returned triangles follow the input vertex order.
//
// Self-intersecting polygons are not detected up front: ear clipping stops
// making progress on them and Triangulate returns nil, which the caller
// treats as degenerate geometry.
func Triangulate(outline []Point) [][3]int {
	n := len(outline)
	if n < 3 {
		return nil
	}

	// Work on an index list so the output references original vertices.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Normalize to counter-clockwise for the ear test.
	if SignedArea(outline) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	var tris [][3]int
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isEar(outline, idx, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// No ear found: self-intersecting or fully collinear input.
			return nil
		}
	}
	// Drop a zero-area final triangle (collinear remainder).
	if math.Abs(cross(outline[idx[0]], outline[idx[1]], outline[idx[2]])) > degenerateArea {
		tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	}
	if len(tris) == 0 {
		return nil
	}
	return tris
}

// isEar reports whether the triangle (prev, cur, next) is convex and
// contains no other outline vertex.
func isEar(outline []Point, idx []int, prev, cur, next int) bool {
	a, b, c := outline[prev], outline[cur], outline[next]
	if cross(a, b, c) <= 0 {
		return false // reflex or collinear corner
	}
	for _, j := range idx {
		if j == prev || j == cur || j == next {
			continue
		}
		if pointInTriangle(outline[j], a, b, c) {
			return false
		}
	}
	return true
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// pointInTriangle reports whether p lies strictly inside triangle abc.
func pointInTriangle(p, a, b, c Point) bool {
	d1 := cross(p, a, b)
	d2 := cross(p, b, c)
	d3 := cross(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
