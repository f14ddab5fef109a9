package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/echiweshe/sceneforge/pkg/geom"
	sferrors "github.com/echiweshe/sceneforge/pkg/errors"
)

// Snapshot JSON wire types. The format preserves everything needed for
// full round-trip fidelity: ids, kinds, materials, local transforms, and
// indexed triangle geometry.
type jsonScene struct {
	Name  string     `json:"name,omitempty"`
	Nodes []jsonNode `json:"nodes"`
}

type jsonNode struct {
	ID        string       `json:"id"`
	Kind      string       `json:"kind"`
	Material  jsonMaterial `json:"material"`
	Transform [16]float64  `json:"transform"`
	Mesh      *jsonMesh    `json:"mesh,omitempty"`
	Children  []jsonNode   `json:"children,omitempty"`
}

type jsonMaterial struct {
	R       float64 `json:"r"`
	G       float64 `json:"g"`
	B       float64 `json:"b"`
	Opacity float64 `json:"opacity"`
}

type jsonMesh struct {
	Vertices  [][3]float64 `json:"vertices"`
	Normals   [][3]float64 `json:"normals"`
	Triangles [][3]int     `json:"triangles"`
}

// WriteJSON encodes a scene snapshot as JSON and writes it to w.
// The output can be re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(s *Scene, w io.Writer) error {
	out := jsonScene{Name: s.Name, Nodes: make([]jsonNode, 0, len(s.Nodes))}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, encodeNode(n))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func encodeNode(n *Node) jsonNode {
	jn := jsonNode{
		ID:   n.ID,
		Kind: n.Kind.String(),
		Material: jsonMaterial{
			R: n.Material.R, G: n.Material.G, B: n.Material.B,
			Opacity: n.Material.Opacity,
		},
		Transform: [16]float64(n.Transform),
	}
	if n.Mesh != nil {
		m := &jsonMesh{
			Vertices:  make([][3]float64, len(n.Mesh.Vertices)),
			Normals:   make([][3]float64, len(n.Mesh.Normals)),
			Triangles: n.Mesh.Triangles,
		}
		for i, v := range n.Mesh.Vertices {
			m.Vertices[i] = [3]float64{v.X, v.Y, v.Z}
		}
		for i, v := range n.Mesh.Normals {
			m.Normals[i] = [3]float64{v.X, v.Y, v.Z}
		}
		jn.Mesh = m
	}
	for _, c := range n.Children {
		jn.Children = append(jn.Children, encodeNode(c))
	}
	return jn
}

// ReadJSON decodes a scene snapshot from r. The snapshot is validated:
// node ids must be unique and kinds known.
func ReadJSON(r io.Reader) (*Scene, error) {
	var in jsonScene
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return nil, sferrors.Wrap(sferrors.ErrCodeIO, err, "decode scene snapshot")
	}

	s := &Scene{Name: in.Name}
	seen := make(map[string]bool)
	for i := range in.Nodes {
		n, err := decodeNode(&in.Nodes[i], seen)
		if err != nil {
			return nil, err
		}
		s.Nodes = append(s.Nodes, n)
	}
	return s, nil
}

func decodeNode(jn *jsonNode, seen map[string]bool) (*Node, error) {
	if jn.ID == "" {
		return nil, sferrors.New(sferrors.ErrCodeInvalidInput, "snapshot node without id")
	}
	if seen[jn.ID] {
		return nil, sferrors.New(sferrors.ErrCodeInvalidInput, "duplicate node id %q in snapshot", jn.ID)
	}
	seen[jn.ID] = true

	n := &Node{
		ID: jn.ID,
		Material: Material{
			R: jn.Material.R, G: jn.Material.G, B: jn.Material.B,
			Opacity: jn.Material.Opacity,
		},
		Transform: geom.Mat4(jn.Transform),
	}
	switch jn.Kind {
	case "mesh":
		n.Kind = NodeMesh
	case "group":
		n.Kind = NodeGroup
	default:
		return nil, sferrors.New(sferrors.ErrCodeInvalidInput, "unknown node kind %q in snapshot", jn.Kind)
	}

	if jn.Mesh != nil {
		m := &Mesh{
			Vertices:  make([]geom.Vec3, len(jn.Mesh.Vertices)),
			Normals:   make([]geom.Vec3, len(jn.Mesh.Normals)),
			Triangles: jn.Mesh.Triangles,
		}
		for i, v := range jn.Mesh.Vertices {
			m.Vertices[i] = geom.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
		for i, v := range jn.Mesh.Normals {
			m.Normals[i] = geom.Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
		for _, tri := range m.Triangles {
			for _, idx := range tri {
				if idx < 0 || idx >= len(m.Vertices) {
					return nil, sferrors.New(sferrors.ErrCodeInvalidInput, "triangle index %d out of range in node %q", idx, jn.ID)
				}
			}
		}
		n.Mesh = m
	}

	for i := range jn.Children {
		c, err := decodeNode(&jn.Children[i], seen)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

// Export writes a scene snapshot to a JSON file at path.
func Export(s *Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return sferrors.Wrap(sferrors.ErrCodeIO, err, "create %s", path)
	}
	defer f.Close()
	return WriteJSON(s, f)
}

// Import reads a scene snapshot from a JSON file at path.
func Import(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sferrors.Wrap(sferrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
