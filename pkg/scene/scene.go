// Package scene defines the 3D scene graph produced by the conversion
// pipeline: a strict tree of nodes carrying meshes, transforms, and
// materials.
//
// A Scene is built once by the scene builder and consumed, never mutated,
// by the animator and renderer. Every node is exclusively owned by its
// parent (transitively by the scene); Clone produces a fully independent
// deep copy. Node ids are unique within a scene and mirror the source
// document's element ids.
package scene

import (
	"sort"

	"github.com/echiweshe/sceneforge/pkg/geom"
)

// NodeKind identifies the variant of a scene node. The set is closed;
// dispatch uses exhaustive switches.
type NodeKind int

const (
	// NodeMesh is a leaf node carrying extruded geometry.
	NodeMesh NodeKind = iota
	// NodeGroup is an interior node grouping children under a shared
	// transform, mirroring a source group.
	NodeGroup
)

// String returns the snapshot name for the kind.
func (k NodeKind) String() string {
	if k == NodeGroup {
		return "group"
	}
	return "mesh"
}

// Material is the surface appearance of a node, resolved from document
// style.
type Material struct {
	// Base color components in [0, 1].
	R, G, B float64
	// Opacity in [0, 1]; 1 is fully opaque.
	Opacity float64
}

// DefaultMaterial is applied when an element carries no usable fill.
func DefaultMaterial() Material {
	return Material{R: 0.8, G: 0.8, B: 0.8, Opacity: 1}
}

// Mesh is indexed triangle geometry in node-local coordinates.
type Mesh struct {
	Vertices  []geom.Vec3
	Normals   []geom.Vec3 // per-vertex, unit length
	Triangles [][3]int    // indices into Vertices
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Vertices:  append([]geom.Vec3(nil), m.Vertices...),
		Normals:   append([]geom.Vec3(nil), m.Normals...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
	return out
}

// Node is one object in the scene tree.
type Node struct {
	ID       string
	Kind     NodeKind
	Material Material

	// Transform is the node's local transform; world transforms compose
	// multiplicatively from root to leaf.
	Transform geom.Mat4

	// Mesh is present on NodeMesh nodes only.
	Mesh *Mesh

	// Children are exclusively owned by this node.
	Children []*Node
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	out := &Node{
		ID:        n.ID,
		Kind:      n.Kind,
		Material:  n.Material,
		Transform: n.Transform,
		Mesh:      n.Mesh.Clone(),
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// Scene is a strict tree of nodes.
type Scene struct {
	Name  string
	Nodes []*Node
}

// Clone returns a fully independent deep copy of the scene.
func (s *Scene) Clone() *Scene {
	out := &Scene{Name: s.Name}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	return out
}

// Walk visits every node in depth-first document order.
// The walk stops when visit returns false.
func (s *Scene) Walk(visit func(n *Node, parent *Node) bool) {
	var rec func(n, parent *Node) bool
	rec = func(n, parent *Node) bool {
		if !visit(n, parent) {
			return false
		}
		for _, c := range n.Children {
			if !rec(c, n) {
				return false
			}
		}
		return true
	}
	for _, n := range s.Nodes {
		if !rec(n, nil) {
			return
		}
	}
}

// NodeCount returns the total number of nodes in the scene.
func (s *Scene) NodeCount() int {
	n := 0
	s.Walk(func(*Node, *Node) bool { n++; return true })
	return n
}

// LeafCount returns the number of mesh nodes in the scene.
func (s *Scene) LeafCount() int {
	n := 0
	s.Walk(func(node *Node, _ *Node) bool {
		if node.Kind == NodeMesh {
			n++
		}
		return true
	})
	return n
}

// Depth returns the maximum nesting depth of the tree; a scene of only
// top-level nodes has depth 1.
func (s *Scene) Depth() int {
	var rec func(n *Node) int
	rec = func(n *Node) int {
		deepest := 0
		for _, c := range n.Children {
			if d := rec(c); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	}
	max := 0
	for _, n := range s.Nodes {
		if d := rec(n); d > max {
			max = d
		}
	}
	return max
}

// Find returns the node with the given id, or nil.
func (s *Scene) Find(id string) *Node {
	var found *Node
	s.Walk(func(n *Node, _ *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// IDs returns the sorted ids of every node in the scene.
func (s *Scene) IDs() []string {
	var ids []string
	s.Walk(func(n *Node, _ *Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	sort.Strings(ids)
	return ids
}

// Bounds returns the world-space bounding box of all mesh vertices.
// ok is false for a scene without geometry.
func (s *Scene) Bounds() (min, max geom.Vec3, ok bool) {
	first := true
	var rec func(n *Node, world geom.Mat4)
	rec = func(n *Node, world geom.Mat4) {
		world = world.Mul(n.Transform)
		if n.Mesh != nil {
			for _, v := range n.Mesh.Vertices {
				p := world.TransformPoint(v)
				if first {
					min, max = p, p
					first = false
					continue
				}
				if p.X < min.X {
					min.X = p.X
				}
				if p.Y < min.Y {
					min.Y = p.Y
				}
				if p.Z < min.Z {
					min.Z = p.Z
				}
				if p.X > max.X {
					max.X = p.X
				}
				if p.Y > max.Y {
					max.Y = p.Y
				}
				if p.Z > max.Z {
					max.Z = p.Z
				}
			}
		}
		for _, c := range n.Children {
			rec(c, world)
		}
	}
	for _, n := range s.Nodes {
		rec(n, geom.Mat4Identity())
	}
	return min, max, !first
}
