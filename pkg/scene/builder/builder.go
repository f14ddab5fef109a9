// Package builder converts parsed vector documents into 3D scenes.
//
// Each drawable element becomes a mesh node: closed outlines are extruded
// along +Z with optional beveled rims, groups map 1:1 onto group nodes,
// and stroked elements gain a companion outline node. The canvas is
// centered at the origin with y flipped from document space (y-down) to
// scene space (y-up).
//
// Building is deterministic: the same document and config always produce
// an identical scene, including node ids, transforms, and materials.
package builder

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/geom"
	"github.com/echiweshe/sceneforge/pkg/scene"
	"github.com/echiweshe/sceneforge/pkg/svg"
)

// textAdvanceFactor approximates the horizontal advance of one glyph as a
// fraction of the font size, used to size text placeholder quads.
const textAdvanceFactor = 0.6

// Config controls how documents are converted into scenes.
type Config struct {
	// ScaleFactor maps document units onto scene units. Must be positive;
	// zero selects the default.
	ScaleFactor float64

	// ExtrudeDepth is the extrusion thickness along +Z in scene units.
	// Zero produces flat geometry.
	ExtrudeDepth float64

	// BevelDepth rounds the extrusion rims. Zero disables beveling; the
	// effective depth is clamped to half the extrusion depth.
	BevelDepth float64

	// BevelResolution is the number of intermediate rings inserted along
	// each beveled rim, beyond the ring at either end.
	BevelResolution int

	// Tolerance is the curve flattening tolerance in document units.
	// Zero selects geom.DefaultTolerance.
	Tolerance float64
}

// DefaultConfig returns the conversion defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		ScaleFactor:     0.01,
		ExtrudeDepth:    0.1,
		BevelDepth:      0.02,
		BevelResolution: 4,
	}
}

// ValidateAndSetDefaults checks the config and fills in defaults for
// unset values. It is idempotent: validating an already-validated config
// changes nothing.
func (c *Config) ValidateAndSetDefaults() error {
	if c.ScaleFactor == 0 {
		c.ScaleFactor = DefaultConfig().ScaleFactor
	}
	if c.ScaleFactor < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "scale factor must be positive, got %v", c.ScaleFactor)
	}
	if c.ExtrudeDepth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "extrude depth cannot be negative, got %v", c.ExtrudeDepth)
	}
	if c.BevelDepth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "bevel depth cannot be negative, got %v", c.BevelDepth)
	}
	if c.BevelResolution < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "bevel resolution cannot be negative, got %d", c.BevelResolution)
	}
	if c.Tolerance < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "tolerance cannot be negative, got %v", c.Tolerance)
	}
	return nil
}

// Builder converts documents into scenes using a fixed config.
type Builder struct {
	cfg    Config
	logger *log.Logger
}

// New creates a builder. A nil logger discards element-level diagnostics
// (skipped degenerate outlines).
func New(cfg Config, logger *log.Logger) (*Builder, error) {
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Builder{cfg: cfg, logger: logger}, nil
}

// Build converts a document into a scene. The document tree maps onto the
// scene tree 1:1 for groups; drawable elements become mesh nodes, plus a
// companion "<id>-stroke" node when the element carries a stroke.
// Degenerate outlines are skipped with a log entry; a document whose
// elements all degenerate fails with CONVERSION_ERROR.
func (b *Builder) Build(doc *svg.Document) (*scene.Scene, error) {
	m := newMapper(doc.ViewBox, b.cfg.ScaleFactor)

	nodes := b.buildNodes(doc.Elements, m)
	if countMeshNodes(nodes) == 0 {
		return nil, errors.New(errors.ErrCodeConversion, "document produced no scene geometry")
	}
	return &scene.Scene{Nodes: nodes}, nil
}

func countMeshNodes(nodes []*scene.Node) int {
	n := 0
	for _, node := range nodes {
		if node.Kind == scene.NodeMesh {
			n++
		}
		n += countMeshNodes(node.Children)
	}
	return n
}

func (b *Builder) buildNodes(elems []svg.Element, m mapper) []*scene.Node {
	var nodes []*scene.Node
	for i := range elems {
		e := &elems[i]
		if e.Kind == svg.KindGroup {
			nodes = append(nodes, &scene.Node{
				ID:        e.ID,
				Kind:      scene.NodeGroup,
				Material:  scene.DefaultMaterial(),
				Transform: m.convertTransform(e.Transform),
				Children:  b.buildNodes(e.Children, m),
			})
			continue
		}
		nodes = append(nodes, b.buildDrawable(e, m)...)
	}
	return nodes
}

// buildDrawable converts one non-group element into zero, one, or two
// nodes (the element's mesh plus an optional stroke companion).
func (b *Builder) buildDrawable(e *svg.Element, m mapper) []*scene.Node {
	var outlines [][]geom.Point
	switch e.Kind {
	case svg.KindLine:
		outlines = lineOutlines(e, m)
	case svg.KindText:
		outlines = textOutlines(e, m)
	default:
		for _, o := range e.Outlines(b.cfg.Tolerance) {
			outlines = append(outlines, m.mapOutline(o))
		}
	}

	mesh := &scene.Mesh{}
	built := 0
	for _, o := range outlines {
		if geom.Degenerate(o) || !extrudeOutline(mesh, o, b.cfg.ExtrudeDepth, b.cfg.BevelDepth, b.cfg.BevelResolution) {
			b.logger.Warn("skipping degenerate outline", "element", e.ID, "vertices", len(o))
			continue
		}
		built++
	}
	if built == 0 {
		b.logger.Warn("element produced no geometry", "element", e.ID, "kind", e.Kind.String())
		return nil
	}

	nodes := []*scene.Node{{
		ID:        e.ID,
		Kind:      scene.NodeMesh,
		Material:  b.fillMaterial(e),
		Transform: m.convertTransform(e.Transform),
		Mesh:      mesh,
	}}

	if stroke := b.buildStroke(e, outlines, m); stroke != nil {
		nodes = append(nodes, stroke)
	}
	return nodes
}

// buildStroke creates the companion node for a stroked element: a thin
// band following the element's outlines, extruded like the fill.
// Line and text elements already render their stroke as the main mesh.
func (b *Builder) buildStroke(e *svg.Element, outlines [][]geom.Point, m mapper) *scene.Node {
	if e.Style.Stroke == nil || e.Style.StrokeWidth <= 0 {
		return nil
	}
	if e.Kind == svg.KindLine || e.Kind == svg.KindText {
		return nil
	}

	width := e.Style.StrokeWidth * m.scale
	mesh := &scene.Mesh{}
	built := 0
	for _, o := range outlines {
		built += strokeBands(mesh, o, width, b.cfg.ExtrudeDepth)
	}
	if built == 0 {
		return nil
	}
	return &scene.Node{
		ID:        e.ID + "-stroke",
		Kind:      scene.NodeMesh,
		Material:  colorMaterial(e.Style.Stroke, e.Style.Opacity),
		Transform: m.convertTransform(e.Transform),
		Mesh:      mesh,
	}
}

// fillMaterial derives the node material from the element style. An
// element without a fill paint gets the default 0.8 grey.
func (b *Builder) fillMaterial(e *svg.Element) scene.Material {
	if e.Kind == svg.KindLine {
		// Lines have no fill; the quad takes the stroke paint.
		if e.Style.Stroke != nil {
			return colorMaterial(e.Style.Stroke, e.Style.Opacity)
		}
	}
	if e.Style.Fill == nil {
		mat := scene.DefaultMaterial()
		mat.Opacity = e.Style.Opacity
		return mat
	}
	return colorMaterial(e.Style.Fill, e.Style.Opacity)
}

func colorMaterial(c *svg.Color, opacity float64) scene.Material {
	return scene.Material{R: c.R, G: c.G, B: c.B, Opacity: opacity}
}

// lineOutlines turns a line element into a single thin quad of the
// element's stroke width, in scene space.
func lineOutlines(e *svg.Element, m mapper) [][]geom.Point {
	p1 := m.mapPoint(geom.Pt(e.X1, e.Y1))
	p2 := m.mapPoint(geom.Pt(e.X2, e.Y2))
	width := e.Style.StrokeWidth * m.scale
	if width <= 0 || p1 == p2 {
		return nil
	}
	return [][]geom.Point{segmentQuad(p1, p2, width)}
}

// textOutlines produces the placeholder quad for a text element, sized by
// font size and glyph count. Real glyph outlines are out of scope.
func textOutlines(e *svg.Element, m mapper) [][]geom.Point {
	runes := []rune(e.Text)
	if len(runes) == 0 || e.FontSize <= 0 {
		return nil
	}
	w := textAdvanceFactor * e.FontSize * float64(len(runes))
	// The y attribute is the baseline; the quad spans one em above it.
	quad := []geom.Point{
		{X: e.X, Y: e.Y - e.FontSize},
		{X: e.X + w, Y: e.Y - e.FontSize},
		{X: e.X + w, Y: e.Y},
		{X: e.X, Y: e.Y},
	}
	return [][]geom.Point{m.mapOutline(quad)}
}

// mapper converts document coordinates (y-down, canvas-relative) into
// scene coordinates (y-up, canvas center at the origin, scaled).
type mapper struct {
	cx, cy float64
	scale  float64
}

func newMapper(vb svg.ViewBox, scale float64) mapper {
	return mapper{
		cx:    vb.MinX + vb.Width/2,
		cy:    vb.MinY + vb.Height/2,
		scale: scale,
	}
}

func (m mapper) mapPoint(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - m.cx) * m.scale,
		Y: (m.cy - p.Y) * m.scale,
	}
}

func (m mapper) mapOutline(o []geom.Point) []geom.Point {
	out := make([]geom.Point, len(o))
	for i, p := range o {
		out[i] = m.mapPoint(p)
	}
	return out
}

// convertTransform lifts a document-space affine into scene space.
// With F the document-to-scene map, the scene transform is F·A·F⁻¹ so
// that composed node transforms applied to mapped geometry reproduce the
// document's composed transforms exactly.
func (m mapper) convertTransform(a geom.Affine) geom.Mat4 {
	if a.IsIdentity() {
		return geom.Mat4Identity()
	}
	f := geom.Mat4Scale(geom.Vec3{X: m.scale, Y: -m.scale, Z: 1}).
		Mul(geom.Mat4Translate(geom.Vec3{X: -m.cx, Y: -m.cy}))
	finv := geom.Mat4Translate(geom.Vec3{X: m.cx, Y: m.cy}).
		Mul(geom.Mat4Scale(geom.Vec3{X: 1 / m.scale, Y: -1 / m.scale, Z: 1}))
	return f.Mul(geom.Mat4FromAffine(a)).Mul(finv)
}

// segmentQuad returns the rectangle of the given width centered on the
// segment from p to q.
func segmentQuad(p, q geom.Point, width float64) []geom.Point {
	d := q.Sub(p)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return nil
	}
	// Unit normal to the segment, scaled to half the width.
	n := geom.Point{X: -d.Y / l * width / 2, Y: d.X / l * width / 2}
	return []geom.Point{p.Add(n), q.Add(n), q.Sub(n), p.Sub(n)}
}
