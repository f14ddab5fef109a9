package scene

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/echiweshe/sceneforge/pkg/geom"
)

func quadMesh(z float64) *Mesh {
	return &Mesh{
		Vertices: []geom.Vec3{
			{X: -1, Y: -1, Z: z}, {X: 1, Y: -1, Z: z},
			{X: 1, Y: 1, Z: z}, {X: -1, Y: 1, Z: z},
		},
		Normals: []geom.Vec3{
			{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
}

func testScene() *Scene {
	return &Scene{
		Name: "test",
		Nodes: []*Node{
			{
				ID:        "g-1",
				Kind:      NodeGroup,
				Material:  DefaultMaterial(),
				Transform: geom.Mat4Identity(),
				Children: []*Node{
					{
						ID:        "rect-1",
						Kind:      NodeMesh,
						Material:  Material{R: 1, G: 0, B: 0, Opacity: 1},
						Transform: geom.Mat4Identity(),
						Mesh:      quadMesh(0),
					},
				},
			},
			{
				ID:        "circle-1",
				Kind:      NodeMesh,
				Material:  DefaultMaterial(),
				Transform: geom.Mat4Translate(geom.Vec3{X: 3}),
				Mesh:      quadMesh(0.5),
			},
		},
	}
}

func TestSceneCounts(t *testing.T) {
	s := testScene()

	if got := s.NodeCount(); got != 3 {
		t.Errorf("NodeCount() = %d, want 3", got)
	}
	if got := s.LeafCount(); got != 2 {
		t.Errorf("LeafCount() = %d, want 2", got)
	}
	if got := s.Depth(); got != 2 {
		t.Errorf("Depth() = %d, want 2", got)
	}
}

func TestSceneFind(t *testing.T) {
	s := testScene()

	if n := s.Find("rect-1"); n == nil || n.ID != "rect-1" {
		t.Fatalf("Find(rect-1) = %v, want nested node", n)
	}
	if n := s.Find("missing"); n != nil {
		t.Errorf("Find(missing) = %v, want nil", n)
	}
	want := []string{"g-1", "rect-1", "circle-1"}
	if got := s.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestSceneWalkStop(t *testing.T) {
	s := testScene()

	var visited []string
	s.Walk(func(n, parent *Node) bool {
		visited = append(visited, n.ID)
		return n.ID != "g-1"
	})

	// Returning false from the visit callback skips the node's children.
	want := []string{"g-1", "circle-1"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
}

func TestSceneBounds(t *testing.T) {
	s := testScene()

	min, max, ok := s.Bounds()
	if !ok {
		t.Fatal("Bounds() reported empty scene")
	}
	wantMin := geom.Vec3{X: -1, Y: -1, Z: 0}
	wantMax := geom.Vec3{X: 4, Y: 1, Z: 0.5}
	if min != wantMin {
		t.Errorf("min = %v, want %v", min, wantMin)
	}
	if max != wantMax {
		t.Errorf("max = %v, want %v", max, wantMax)
	}
}

func TestSceneCloneIsDeep(t *testing.T) {
	s := testScene()
	c := s.Clone()

	c.Nodes[0].Children[0].Mesh.Vertices[0].X = 99
	c.Nodes[1].Transform = geom.Mat4Translate(geom.Vec3{X: -7})
	c.Nodes[0].Children[0].Material.R = 0.5

	if s.Nodes[0].Children[0].Mesh.Vertices[0].X == 99 {
		t.Error("Clone shares mesh vertex storage with original")
	}
	if s.Nodes[1].Transform == c.Nodes[1].Transform {
		t.Error("Clone shares transform with original")
	}
	if s.Nodes[0].Children[0].Material.R == 0.5 {
		t.Error("Clone shares material with original")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testScene()

	var buf bytes.Buffer
	if err := WriteJSON(s, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if !reflect.DeepEqual(got, s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestSnapshotRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing id", `{"nodes":[{"kind":"mesh","transform":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]}]}`},
		{"unknown kind", `{"nodes":[{"id":"a","kind":"sprite","transform":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]}]}`},
		{"duplicate id", `{"nodes":[
			{"id":"a","kind":"group","transform":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]},
			{"id":"a","kind":"group","transform":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]}]}`},
		{"triangle index out of range", `{"nodes":[{"id":"a","kind":"mesh",
			"transform":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1],
			"mesh":{"vertices":[[0,0,0],[1,0,0],[0,1,0]],"normals":[],"triangles":[[0,1,5]]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSON(bytes.NewReader([]byte(tt.json))); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
