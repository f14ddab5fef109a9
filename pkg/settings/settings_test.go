package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/echiweshe/sceneforge/pkg/errors"
	"github.com/echiweshe/sceneforge/pkg/pipeline"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.Conversion.ScaleFactor != 0.01 {
		t.Errorf("ScaleFactor = %v, want 0.01", s.Conversion.ScaleFactor)
	}
	if s.Render.Width != 1280 || s.Render.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", s.Render.Width, s.Render.Height)
	}
	if s.Render.Quality != "medium" {
		t.Errorf("Quality = %q, want medium", s.Render.Quality)
	}
}

func TestApplyLeavesSetFieldsAlone(t *testing.T) {
	s := Default()
	opts := &pipeline.Options{Width: 640, Quality: "high"}
	s.Apply(opts)

	if opts.Width != 640 {
		t.Errorf("Width = %d, want 640", opts.Width)
	}
	if opts.Quality != "high" {
		t.Errorf("Quality = %q, want high", opts.Quality)
	}
	if opts.Height != s.Render.Height {
		t.Errorf("Height = %d, want %d", opts.Height, s.Render.Height)
	}
	if opts.ExtrudeDepth != s.Conversion.ExtrudeDepth {
		t.Errorf("ExtrudeDepth = %v, want %v", opts.ExtrudeDepth, s.Conversion.ExtrudeDepth)
	}
}

func TestFileStoreLoadMissingReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.toml"))
	s, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Default() {
		t.Errorf("missing file settings = %+v, want defaults", s)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.toml")
	store := NewFileStore(path)
	ctx := context.Background()

	want := Default()
	want.Conversion.ExtrudeDepth = 0.5
	want.Render.Quality = "high"
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestFileStorePartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := "[render]\nwidth = 1920\nheight = 1080\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Render.Width != 1920 || s.Render.Height != 1080 {
		t.Errorf("size = %dx%d, want 1920x1080", s.Render.Width, s.Render.Height)
	}
	if s.Render.Quality != Default().Render.Quality {
		t.Errorf("Quality = %q, want default", s.Render.Quality)
	}
	if s.Conversion != Default().Conversion {
		t.Errorf("Conversion = %+v, want defaults", s.Conversion)
	}
}

func TestFileStoreMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}
