package render

import (
	"image"
	"image/color"
	"math"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/geom"
	"github.com/echiweshe/sceneforge/pkg/scene"
)

// lightDir is the fixed directional light, normalized.
var lightDir = geom.Vec3{X: -0.4, Y: 0.7, Z: 0.6}.Normalize()

// Shading mixes a small ambient term with the diffuse response so
// faces pointing away from the light stay visible.
const (
	ambient = 0.25
	diffuse = 0.75
)

var background = color.RGBA{R: 18, G: 18, B: 22, A: 255}

// frameBuffer is an RGBA buffer with a parallel z-buffer holding view
// depths (smaller is closer).
type frameBuffer struct {
	img   *image.RGBA
	depth []float64
	w, h  int
}

func newFrameBuffer(w, h int) *frameBuffer {
	return &frameBuffer{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		depth: make([]float64, w*h),
		w:     w,
		h:     h,
	}
}

func (fb *frameBuffer) clear() {
	for i := range fb.depth {
		fb.depth[i] = math.Inf(1)
	}
	pix := fb.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = background.R
		pix[i+1] = background.G
		pix[i+2] = background.B
		pix[i+3] = background.A
	}
}

// screenVert is a projected vertex: pixel position, view depth, and the
// lit color at the vertex.
type screenVert struct {
	x, y  float64
	depth float64
	shade geom.Vec3
}

// triangle fills one projected triangle with depth testing, barycentric
// color interpolation, and alpha blending against the buffer.
func (fb *frameBuffer) triangle(a, b, c screenVert, opacity float64) {
	area := (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
	if math.Abs(area) < 1e-12 {
		return
	}

	minX := int(math.Floor(math.Min(a.x, math.Min(b.x, c.x))))
	maxX := int(math.Ceil(math.Max(a.x, math.Max(b.x, c.x))))
	minY := int(math.Floor(math.Min(a.y, math.Min(b.y, c.y))))
	maxY := int(math.Ceil(math.Max(a.y, math.Max(b.y, c.y))))
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, fb.w-1)
	maxY = min(maxY, fb.h-1)

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			fx, fy := float64(px)+0.5, float64(py)+0.5
			w0 := ((b.x-a.x)*(fy-a.y) - (b.y-a.y)*(fx-a.x)) / area
			w1 := ((c.x-b.x)*(fy-b.y) - (c.y-b.y)*(fx-b.x)) / area
			w2 := ((a.x-c.x)*(fy-c.y) - (a.y-c.y)*(fx-c.x)) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			// w1 weights vertex a (opposite edge bc), w2 weights b, w0 weights c.
			d := w1*a.depth + w2*b.depth + w0*c.depth
			idx := py*fb.w + px
			if d >= fb.depth[idx] {
				continue
			}
			fb.depth[idx] = d
			shade := geom.Vec3{
				X: w1*a.shade.X + w2*b.shade.X + w0*c.shade.X,
				Y: w1*a.shade.Y + w2*b.shade.Y + w0*c.shade.Y,
				Z: w1*a.shade.Z + w2*b.shade.Z + w0*c.shade.Z,
			}
			fb.blend(idx*4, shade, opacity)
		}
	}
}

func (fb *frameBuffer) blend(off int, shade geom.Vec3, opacity float64) {
	pix := fb.img.Pix
	r := shade.X*opacity + float64(pix[off+0])/255*(1-opacity)
	g := shade.Y*opacity + float64(pix[off+1])/255*(1-opacity)
	b := shade.Z*opacity + float64(pix[off+2])/255*(1-opacity)
	pix[off+0] = channel(r)
	pix[off+1] = channel(g)
	pix[off+2] = channel(b)
	pix[off+3] = 255
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// drawScene rasterizes every mesh node of the scene at the given poses.
// World transforms compose root to leaf; a node's pose delta applies on
// top of its own transform.
func drawScene(fb *frameBuffer, s *scene.Scene, poses map[string]anim.Pose, cam camera, q Quality) {
	for _, n := range s.Nodes {
		drawNode(fb, n, poses, geom.Mat4Identity(), cam, q)
	}
}

func drawNode(fb *frameBuffer, n *scene.Node, poses map[string]anim.Pose, parent geom.Mat4, cam camera, q Quality) {
	world := parent.Mul(n.Transform)
	pose, posed := poses[n.ID]
	if posed {
		world = world.Mul(pose.Transform())
	}

	if n.Kind == scene.NodeMesh && n.Mesh != nil {
		opacity := n.Material.Opacity
		if posed && pose.HasOpacity {
			opacity = pose.Opacity
		}
		if opacity > 0 {
			drawMesh(fb, n.Mesh, n.Material, opacity, world, cam, q)
		}
	}
	for _, c := range n.Children {
		drawNode(fb, c, poses, world, cam, q)
	}
}

func drawMesh(fb *frameBuffer, m *scene.Mesh, mat scene.Material, opacity float64, world geom.Mat4, cam camera, q Quality) {
	base := geom.Vec3{X: mat.R, Y: mat.G, Z: mat.B}
	smooth := q.smoothShading()

	worldPos := make([]geom.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		worldPos[i] = world.TransformPoint(v)
	}
	var lit []geom.Vec3
	if smooth {
		lit = make([]geom.Vec3, len(m.Normals))
		for i, nrm := range m.Normals {
			lit[i] = shadeColor(base, world.TransformDir(nrm).Normalize())
		}
	}

	for _, t := range m.Triangles {
		va, vb, vc := worldPos[t[0]], worldPos[t[1]], worldPos[t[2]]

		faceNrm := vb.Sub(va).Cross(vc.Sub(va)).Normalize()
		if q.backfaceCull() {
			centroid := va.Add(vb).Add(vc).Mulf(1.0 / 3)
			if faceNrm.Dot(cam.pos.Sub(centroid)) <= 1e-9 {
				continue
			}
		}

		ax, ay, ad, ok1 := cam.project(va)
		bx, by, bd, ok2 := cam.project(vb)
		cx, cy, cd, ok3 := cam.project(vc)
		if !ok1 || !ok2 || !ok3 {
			continue
		}

		var sa, sb, sc geom.Vec3
		if smooth {
			sa, sb, sc = lit[t[0]], lit[t[1]], lit[t[2]]
		} else {
			flat := shadeColor(base, faceNrm)
			sa, sb, sc = flat, flat, flat
		}

		fb.triangle(
			screenVert{x: ax, y: ay, depth: ad, shade: sa},
			screenVert{x: bx, y: by, depth: bd, shade: sb},
			screenVert{x: cx, y: cy, depth: cd, shade: sc},
			opacity,
		)
	}
}

// shadeColor lights a base color with the fixed directional light.
// Normal sign is ignored so back caps and front caps light alike.
func shadeColor(base, normal geom.Vec3) geom.Vec3 {
	i := ambient + diffuse*math.Abs(normal.Dot(lightDir))
	return base.Mulf(i)
}
