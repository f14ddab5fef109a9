package builder

import (
	"math"

	"github.com/echiweshe/sceneforge/pkg/geom"
	"github.com/echiweshe/sceneforge/pkg/scene"
)

// ring describes one horizontal cross-section of an extrusion side wall:
// how far the outline is inset, the z plane, and the normal's split
// between the outward radial direction (nxy) and the z axis (nz).
type ring struct {
	inset float64
	z     float64
	nxy   float64
	nz    float64
}

// extrudeOutline appends the extrusion of one closed scene-space outline
// to mesh: front and back caps plus a side wall, with quarter-round
// beveled rims when bevel > 0. A zero depth yields a flat front cap only.
// Returns false when the outline cannot be triangulated.
func extrudeOutline(mesh *scene.Mesh, outline []geom.Point, depth, bevel float64, res int) bool {
	if len(outline) < 3 {
		return false
	}
	// Normalize to counter-clockwise so cap triangles face +Z and side
	// quads face outward.
	pts := make([]geom.Point, len(outline))
	copy(pts, outline)
	if geom.SignedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	tris := geom.Triangulate(pts)
	if tris == nil {
		return false
	}

	if depth <= 0 {
		appendCap(mesh, pts, tris, 0, 1)
		return true
	}

	b := bevel
	if b > depth/2 {
		b = depth / 2
	}
	outward := vertexNormals(pts)

	inset := pts
	if b > 0 {
		inset = make([]geom.Point, len(pts))
		for i, p := range pts {
			inset[i] = geom.Point{X: p.X - outward[i].X*b, Y: p.Y - outward[i].Y*b}
		}
	}
	appendCap(mesh, inset, tris, depth, 1)
	appendCap(mesh, inset, tris, 0, -1)

	for _, rings := range sideRings(depth, b, res) {
		appendWall(mesh, pts, outward, rings)
	}
	return true
}

// sideRings returns the ring sequences of the side wall, ordered back to
// front. With beveling there are two quarter-round chains joined by a
// straight section; without it a single straight pair.
func sideRings(depth, bevel float64, res int) [][]ring {
	if bevel <= 0 {
		return [][]ring{{
			{inset: 0, z: 0, nxy: 1, nz: 0},
			{inset: 0, z: depth, nxy: 1, nz: 0},
		}}
	}

	steps := res + 2
	back := make([]ring, 0, steps+1)
	front := make([]ring, 0, steps+1)
	for k := 0; k <= steps; k++ {
		theta := float64(k) / float64(steps) * math.Pi / 2
		sin, cos := math.Sincos(theta)
		inset := bevel * (1 - sin)
		off := bevel * (1 - cos)
		back = append(back, ring{inset: inset, z: off, nxy: sin, nz: -cos})
		front = append(front, ring{inset: inset, z: depth - off, nxy: sin, nz: cos})
	}
	// back runs cap→body; front must run body→cap to keep z ascending.
	for i, j := 0, len(front)-1; i < j; i, j = i+1, j-1 {
		front[i], front[j] = front[j], front[i]
	}
	straight := []ring{
		{inset: 0, z: bevel, nxy: 1, nz: 0},
		{inset: 0, z: depth - bevel, nxy: 1, nz: 0},
	}
	return [][]ring{back, straight, front}
}

// appendCap appends a triangulated cap at the given z plane. dir is the
// face direction along z: +1 for the front cap, -1 for the back cap
// (which reverses triangle winding).
func appendCap(mesh *scene.Mesh, pts []geom.Point, tris [][3]int, z, dir float64) {
	base := len(mesh.Vertices)
	for _, p := range pts {
		mesh.Vertices = append(mesh.Vertices, geom.Vec3{X: p.X, Y: p.Y, Z: z})
		mesh.Normals = append(mesh.Normals, geom.Vec3{Z: dir})
	}
	for _, t := range tris {
		if dir > 0 {
			mesh.Triangles = append(mesh.Triangles, [3]int{base + t[0], base + t[1], base + t[2]})
		} else {
			mesh.Triangles = append(mesh.Triangles, [3]int{base + t[2], base + t[1], base + t[0]})
		}
	}
}

// appendWall appends the quads connecting consecutive rings of a side
// wall section.
func appendWall(mesh *scene.Mesh, pts []geom.Point, outward []geom.Point, rings []ring) {
	n := len(pts)
	base := len(mesh.Vertices)
	for _, r := range rings {
		for i, p := range pts {
			mesh.Vertices = append(mesh.Vertices, geom.Vec3{
				X: p.X - outward[i].X*r.inset,
				Y: p.Y - outward[i].Y*r.inset,
				Z: r.z,
			})
			mesh.Normals = append(mesh.Normals, geom.Vec3{
				X: outward[i].X * r.nxy,
				Y: outward[i].Y * r.nxy,
				Z: r.nz,
			})
		}
	}
	for k := 0; k < len(rings)-1; k++ {
		row, next := base+k*n, base+(k+1)*n
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			mesh.Triangles = append(mesh.Triangles,
				[3]int{row + i, row + j, next + j},
				[3]int{row + i, next + j, next + i},
			)
		}
	}
}

// vertexNormals returns the unit outward normal at each vertex of a
// counter-clockwise outline, averaging the two adjacent edge normals.
func vertexNormals(pts []geom.Point) []geom.Point {
	n := len(pts)
	edge := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		d := pts[(i+1)%n].Sub(pts[i])
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			edge[i] = geom.Point{}
			continue
		}
		// Outward normal of a counter-clockwise edge.
		edge[i] = geom.Point{X: d.Y / l, Y: -d.X / l}
	}
	out := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		prev := edge[(i+n-1)%n]
		sum := geom.Point{X: prev.X + edge[i].X, Y: prev.Y + edge[i].Y}
		l := math.Hypot(sum.X, sum.Y)
		if l < 1e-12 {
			// Opposing edge normals (a spike); fall back to one edge.
			out[i] = edge[i]
			continue
		}
		out[i] = geom.Point{X: sum.X / l, Y: sum.Y / l}
	}
	return out
}

// strokeBands appends one extruded band per outline edge, each a thin
// quad of the given width centered on the edge. Returns the number of
// bands appended.
func strokeBands(mesh *scene.Mesh, outline []geom.Point, width, depth float64) int {
	if width <= 0 || len(outline) < 2 {
		return 0
	}
	built := 0
	for i := range outline {
		p, q := outline[i], outline[(i+1)%len(outline)]
		quad := segmentQuad(p, q, width)
		if quad == nil || geom.Degenerate(quad) {
			continue
		}
		if extrudeOutline(mesh, quad, depth, 0, 0) {
			built++
		}
	}
	return built
}
