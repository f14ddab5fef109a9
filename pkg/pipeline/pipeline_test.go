package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/echiweshe/sceneforge/pkg/anim"
	"github.com/echiweshe/sceneforge/pkg/cache"
	sferrors "github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/render"
)

const testMarkup = `<svg viewBox="0 0 100 100">
	<rect id="box" x="10" y="10" width="30" height="30" fill="red"/>
	<circle id="dot" cx="70" cy="70" r="10" fill="blue"/>
</svg>`

// stubRenderer replaces the ffmpeg-backed renderer with one that writes a
// placeholder artifact and counts invocations.
type stubRenderer struct {
	calls int
	fail  error
}

func (s *stubRenderer) render(_ context.Context, _ *log.Logger, _ *anim.AnimatedScene, job render.Job) error {
	s.calls++
	if s.fail != nil {
		return s.fail
	}
	return os.WriteFile(job.OutputPath, []byte("video"), 0o644)
}

func testRunner(t *testing.T) (*Runner, *stubRenderer) {
	t.Helper()
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	stub := &stubRenderer{}
	r := NewRunner(c, nil, nil)
	r.renderScene = stub.render
	return r, stub
}

func testOptions(t *testing.T, mutate func(*Options)) *Options {
	t.Helper()
	opts := &Options{
		Markup:     []byte(testMarkup),
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	}
	if mutate != nil {
		mutate(opts)
	}
	return opts
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode sferrors.Code
	}{
		{
			name:     "no input",
			opts:     Options{OutputPath: "out.mp4"},
			wantCode: sferrors.ErrCodeInvalidInput,
		},
		{
			name:     "missing input file",
			opts:     Options{InputPath: "does/not/exist.svg", OutputPath: "out.mp4"},
			wantCode: sferrors.ErrCodeIO,
		},
		{
			name:     "no output path",
			opts:     Options{Markup: []byte(testMarkup)},
			wantCode: sferrors.ErrCodeInvalidInput,
		},
		{
			name:     "negative extrude depth",
			opts:     Options{Markup: []byte(testMarkup), OutputPath: "out.mp4", ExtrudeDepth: -1},
			wantCode: sferrors.ErrCodeInvalidInput,
		},
		{
			name:     "unknown quality",
			opts:     Options{Markup: []byte(testMarkup), OutputPath: "out.mp4", Quality: "ultra"},
			wantCode: sferrors.ErrCodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error")
			}
			if !sferrors.Is(err, tt.wantCode) {
				t.Errorf("code = %s, want %s", sferrors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "drawing.svg")
	if err := os.WriteFile(input, []byte(testMarkup), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := &Options{InputPath: input, OutputPath: filepath.Join(dir, "out.mp4")}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Name != "drawing" {
		t.Errorf("Name = %q, want %q", opts.Name, "drawing")
	}
	if len(opts.Markup) == 0 {
		t.Error("markup not read from input path")
	}
	if opts.Width != render.DefaultWidth || opts.Height != render.DefaultHeight {
		t.Errorf("size = %dx%d, want defaults", opts.Width, opts.Height)
	}
	if opts.Quality != string(render.DefaultQuality) {
		t.Errorf("Quality = %q, want %q", opts.Quality, render.DefaultQuality)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second validation: %v", err)
	}
}

func TestOptionsFrameEndFromTimeline(t *testing.T) {
	opts := testOptions(t, func(o *Options) {
		o.Tracks = []anim.Track{{
			Target:   "box",
			Property: anim.PropPosition,
			Keyframes: []anim.Keyframe{
				{Frame: 0, Value: anim.Value{0, 0, 0}},
				{Frame: 42, Value: anim.Value{1, 0, 0}},
			},
		}}
	})
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.FrameEnd != 42 {
		t.Errorf("FrameEnd = %d, want 42", opts.FrameEnd)
	}
}

func TestStageError(t *testing.T) {
	cause := sferrors.New(sferrors.ErrCodeParse, "bad markup")
	err := stageErr(StageParsing, cause)

	var stageE *StageError
	if !errors.As(err, &stageE) {
		t.Fatal("expected *StageError")
	}
	if stageE.Stage != StageParsing {
		t.Errorf("Stage = %s, want %s", stageE.Stage, StageParsing)
	}
	if !sferrors.Is(err, sferrors.ErrCodeParse) {
		t.Error("cause code not visible through StageError")
	}
	if stageErr(StageRendering, nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestExecuteStatic(t *testing.T) {
	r, stub := testRunner(t)
	opts := testOptions(t, nil)

	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.ElementCount != 2 {
		t.Errorf("ElementCount = %d, want 2", res.Stats.ElementCount)
	}
	if res.Stats.NodeCount == 0 {
		t.Error("NodeCount = 0")
	}
	if res.Stats.FrameCount != 1 {
		t.Errorf("FrameCount = %d, want 1", res.Stats.FrameCount)
	}
	if res.DocumentHash == "" || res.SceneHash == "" {
		t.Error("missing content hashes")
	}
	if res.CacheInfo != (CacheInfo{}) {
		t.Errorf("first run reported cache hits: %+v", res.CacheInfo)
	}
	if stub.calls != 1 {
		t.Errorf("render calls = %d, want 1", stub.calls)
	}
	if _, err := os.Stat(opts.OutputPath); err != nil {
		t.Errorf("missing artifact: %v", err)
	}
}

func TestExecuteCachesStages(t *testing.T) {
	r, stub := testRunner(t)
	first := testOptions(t, nil)
	if _, err := r.Execute(context.Background(), first); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	second := testOptions(t, nil)
	res, err := r.Execute(context.Background(), second)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	want := CacheInfo{ParseHit: true, BuildHit: true, RenderHit: true}
	if res.CacheInfo != want {
		t.Errorf("CacheInfo = %+v, want %+v", res.CacheInfo, want)
	}
	if stub.calls != 1 {
		t.Errorf("render calls = %d, want 1", stub.calls)
	}
	data, err := os.ReadFile(second.OutputPath)
	if err != nil {
		t.Fatalf("reading cached artifact: %v", err)
	}
	if string(data) != "video" {
		t.Errorf("artifact = %q, want %q", data, "video")
	}
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp4")

	if err := writeArtifact(path, []byte("video")); err != nil {
		t.Fatalf("writeArtifact: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "video" {
		t.Errorf("artifact = %q, want %q", data, "video")
	}

	// Overwriting an existing artifact must also go through the rename.
	if err := writeArtifact(path, []byte("video2")); err != nil {
		t.Fatalf("writeArtifact overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "video2" {
		t.Errorf("artifact after overwrite = %q, want %q", data, "video2")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir holds %d entries, want only the artifact", len(entries))
	}
}

func TestCacheHitLeavesNoPartialFiles(t *testing.T) {
	r, _ := testRunner(t)
	first := testOptions(t, nil)
	if _, err := r.Execute(context.Background(), first); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	outDir := t.TempDir()
	second := testOptions(t, func(o *Options) {
		o.OutputPath = filepath.Join(outDir, "copy.mp4")
	})
	res, err := r.Execute(context.Background(), second)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !res.CacheInfo.RenderHit {
		t.Fatal("expected an artifact cache hit")
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "copy.mp4" {
		t.Errorf("output dir entries = %v, want only copy.mp4", entries)
	}
}

func TestExecuteSkipRender(t *testing.T) {
	r, stub := testRunner(t)
	opts := &Options{Markup: []byte(testMarkup), SkipRender: true}

	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("render calls = %d, want 0", stub.calls)
	}
	if res.OutputPath != "" {
		t.Errorf("OutputPath = %q, want empty", res.OutputPath)
	}
	if len(res.ObjectsCreated) == 0 {
		t.Error("ObjectsCreated is empty")
	}
	for _, id := range []string{"box", "dot"} {
		if res.Scene.Find(id) == nil {
			t.Errorf("missing node %q", id)
		}
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	r, stub := testRunner(t)
	if _, err := r.Execute(context.Background(), testOptions(t, nil)); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	res, err := r.Execute(context.Background(), testOptions(t, func(o *Options) {
		o.Refresh = true
	}))
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if res.CacheInfo != (CacheInfo{}) {
		t.Errorf("refresh run reported cache hits: %+v", res.CacheInfo)
	}
	if stub.calls != 2 {
		t.Errorf("render calls = %d, want 2", stub.calls)
	}
}

func TestExecuteAnimated(t *testing.T) {
	r, _ := testRunner(t)
	opts := testOptions(t, func(o *Options) {
		o.Tracks = []anim.Track{{
			Target:   "box",
			Property: anim.PropOpacity,
			Keyframes: []anim.Keyframe{
				{Frame: 0, Value: anim.Value{1}},
				{Frame: 10, Value: anim.Value{0}},
			},
		}}
	})

	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.FrameCount != 11 {
		t.Errorf("FrameCount = %d, want 11", res.Stats.FrameCount)
	}
	first, last := res.Animated.FrameRange()
	if first != 0 || last != 10 {
		t.Errorf("FrameRange = (%d, %d), want (0, 10)", first, last)
	}
}

func TestExecuteStageErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Options)
		wantStage Stage
		wantCode  sferrors.Code
	}{
		{
			name:      "malformed markup",
			mutate:    func(o *Options) { o.Markup = []byte("<svg") },
			wantStage: StageParsing,
			wantCode:  sferrors.ErrCodeParse,
		},
		{
			name:      "empty document",
			mutate:    func(o *Options) { o.Markup = []byte(`<svg viewBox="0 0 10 10"></svg>`) },
			wantStage: StageParsing,
			wantCode:  sferrors.ErrCodeEmptyDocument,
		},
		{
			name: "unknown animation target",
			mutate: func(o *Options) {
				o.Tracks = []anim.Track{{
					Target:    "ghost",
					Property:  anim.PropOpacity,
					Keyframes: []anim.Keyframe{{Frame: 0, Value: anim.Value{1}}},
				}}
			},
			wantStage: StageAnimating,
			wantCode:  sferrors.ErrCodeUnknownTarget,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := testRunner(t)
			_, err := r.Execute(context.Background(), testOptions(t, tt.mutate))
			if err == nil {
				t.Fatal("expected error")
			}
			var stageE *StageError
			if !errors.As(err, &stageE) {
				t.Fatalf("expected *StageError, got %T", err)
			}
			if stageE.Stage != tt.wantStage {
				t.Errorf("stage = %s, want %s", stageE.Stage, tt.wantStage)
			}
			if !sferrors.Is(err, tt.wantCode) {
				t.Errorf("code = %s, want %s", sferrors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestExecuteRenderFailure(t *testing.T) {
	r, stub := testRunner(t)
	stub.fail = sferrors.New(sferrors.ErrCodeRender, "encoder exploded")

	_, err := r.Execute(context.Background(), testOptions(t, nil))
	if err == nil {
		t.Fatal("expected error")
	}
	var stageE *StageError
	if !errors.As(err, &stageE) || stageE.Stage != StageRendering {
		t.Fatalf("expected rendering stage error, got %v", err)
	}
}

func TestParseWithCacheInfoCorruptEntry(t *testing.T) {
	r, _ := testRunner(t)
	opts := testOptions(t, nil)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}

	key := r.Keyer.DocumentKey(cache.Hash(opts.Markup))
	if err := r.Cache.Set(context.Background(), key, []byte("not json"), 0); err != nil {
		t.Fatal(err)
	}

	doc, hit, err := r.ParseWithCacheInfo(context.Background(), opts)
	if err != nil {
		t.Fatalf("ParseWithCacheInfo: %v", err)
	}
	if hit {
		t.Error("corrupt entry reported as hit")
	}
	if doc.DrawableCount() != 2 {
		t.Errorf("DrawableCount = %d, want 2", doc.DrawableCount())
	}
}
