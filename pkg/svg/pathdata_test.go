package svg

import (
	"testing"

	"github.com/echiweshe/sceneforge/pkg/geom"
)

func TestParsePathDataAbsolute(t *testing.T) {
	cmds, err := parsePathData("M10 10 L20 10 L20 20 Z")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	want := []PathCommand{
		{Op: OpMove, P1: geom.Pt(10, 10)},
		{Op: OpLine, P1: geom.Pt(20, 10)},
		{Op: OpLine, P1: geom.Pt(20, 20)},
		{Op: OpClose},
	}
	if len(cmds) != len(want) {
		t.Fatalf("len(cmds) = %d, want %d", len(cmds), len(want))
	}
	for i := range want {
		if cmds[i] != want[i] {
			t.Errorf("cmds[%d] = %+v, want %+v", i, cmds[i], want[i])
		}
	}
}

func TestParsePathDataRelative(t *testing.T) {
	cmds, err := parsePathData("m10 10 l10 0 v10 h-10 z")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	wantPts := []geom.Point{
		geom.Pt(10, 10),
		geom.Pt(20, 10),
		geom.Pt(20, 20),
		geom.Pt(10, 20),
	}
	for i, p := range wantPts {
		if cmds[i].P1 != p {
			t.Errorf("cmds[%d].P1 = %+v, want %+v", i, cmds[i].P1, p)
		}
	}
	if cmds[4].Op != OpClose {
		t.Errorf("cmds[4].Op = %v, want close", cmds[4].Op)
	}
}

func TestParsePathDataImplicitLineto(t *testing.T) {
	// Coordinate pairs after a moveto continue as implicit linetos.
	cmds, err := parsePathData("M0 0 10 0 10 10")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	if len(cmds) != 3 || cmds[1].Op != OpLine || cmds[2].Op != OpLine {
		t.Fatalf("cmds = %+v, want move + 2 linetos", cmds)
	}
}

func TestParsePathDataCubicAndShorthand(t *testing.T) {
	cmds, err := parsePathData("M0 0 C 0 10, 10 10, 10 0 S 20 -10, 20 0")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("len(cmds) = %d, want 3", len(cmds))
	}
	s := cmds[2]
	if s.Op != OpCubic {
		t.Fatalf("cmds[2].Op = %v, want cubic", s.Op)
	}
	// Shorthand reflects the previous control point (10,10) about (10,0).
	if s.C1 != geom.Pt(10, -10) {
		t.Errorf("reflected control = %+v, want (10, -10)", s.C1)
	}
}

func TestParsePathDataQuadShorthand(t *testing.T) {
	cmds, err := parsePathData("M0 0 Q 5 10 10 0 T 20 0")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	tc := cmds[2]
	if tc.Op != OpQuad {
		t.Fatalf("cmds[2].Op = %v, want quad", tc.Op)
	}
	if tc.C1 != geom.Pt(15, -10) {
		t.Errorf("reflected control = %+v, want (15, -10)", tc.C1)
	}
}

func TestParsePathDataArcFlags(t *testing.T) {
	// Compact flag syntax: "011 1" is largeArc=0, sweep=1, x=1, y=1.
	cmds, err := parsePathData("M0 0 a1 1 0 011 1")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	a := cmds[1]
	if a.Op != OpArc || a.LargeArc || !a.Sweep {
		t.Errorf("arc = %+v, want largeArc=false sweep=true", a)
	}
	if a.P1 != geom.Pt(1, 1) {
		t.Errorf("arc target = %+v, want (1, 1)", a.P1)
	}
}

func TestParsePathDataErrors(t *testing.T) {
	tests := []struct {
		name string
		d    string
	}{
		{"unknown command", "M0 0 W5 5"},
		{"starts without moveto number", "10 10 L20 20"},
		{"truncated coordinates", "M0 0 L10"},
		{"bad arc flag", "M0 0 A1 1 0 2 0 5 5"},
		{"garbage", "M 0 X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePathData(tt.d); err == nil {
				t.Errorf("parsePathData(%q) error = nil, want error", tt.d)
			}
		})
	}
}

func TestOutlinesRect(t *testing.T) {
	e := Element{Kind: KindRect, X: 1, Y: 2, W: 3, H: 4}
	outlines := e.Outlines(0)
	if len(outlines) != 1 || len(outlines[0]) != 4 {
		t.Fatalf("outlines = %+v, want one 4-point outline", outlines)
	}
}

func TestOutlinesCircleClosed(t *testing.T) {
	e := Element{Kind: KindCircle, CX: 5, CY: 5, RX: 2, RY: 2}
	outlines := e.Outlines(0)
	if len(outlines) != 1 {
		t.Fatalf("len(outlines) = %d, want 1", len(outlines))
	}
	if len(outlines[0]) != EllipseSegments {
		t.Errorf("len(outline) = %d, want %d", len(outlines[0]), EllipseSegments)
	}
}

func TestOutlinesPathSubpaths(t *testing.T) {
	cmds, err := parsePathData("M0 0 L10 0 L10 10 Z M20 0 L30 0 L30 10 Z")
	if err != nil {
		t.Fatalf("parsePathData() error = %v", err)
	}
	e := Element{Kind: KindPath, Path: cmds}
	outlines := e.Outlines(0)
	if len(outlines) != 2 {
		t.Fatalf("len(outlines) = %d, want 2", len(outlines))
	}
}

func TestOutlinesLineAndTextEmpty(t *testing.T) {
	line := Element{Kind: KindLine, X1: 0, Y1: 0, X2: 5, Y2: 5}
	if got := line.Outlines(0); got != nil {
		t.Errorf("line outlines = %v, want nil", got)
	}
	text := Element{Kind: KindText, Text: "hi"}
	if got := text.Outlines(0); got != nil {
		t.Errorf("text outlines = %v, want nil", got)
	}
}
