package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

const testMarkup = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <rect id="box" x="10" y="10" width="40" height="30" fill="#4078c0"/>
  <circle id="dot" cx="70" cy="60" r="12" fill="#d73a49"/>
</svg>`

func testCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return New(io.Discard, log.ErrorLevel)
}

func writeTestSVG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drawing.svg")
	if err := os.WriteFile(path, []byte(testMarkup), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := testCLI(t)
	root := c.RootCommand()

	want := []string{"convert", "render", "serve", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestConvertCommandWritesSnapshot(t *testing.T) {
	c := testCLI(t)
	input := writeTestSVG(t)
	output := filepath.Join(t.TempDir(), "scene.json")

	root := c.RootCommand()
	root.SetArgs([]string{"convert", input, "-o", output})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !bytes.Contains(data, []byte(`"box"`)) || !bytes.Contains(data, []byte(`"dot"`)) {
		t.Error("snapshot should contain node ids from the document")
	}
}

func TestConvertCommandMissingInput(t *testing.T) {
	c := testCLI(t)

	root := c.RootCommand()
	root.SetArgs([]string{"convert", filepath.Join(t.TempDir(), "absent.svg")})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestRenderCommandRequiresOutput(t *testing.T) {
	c := testCLI(t)
	input := writeTestSVG(t)

	root := c.RootCommand()
	root.SetArgs([]string{"render", input})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	err := root.Execute()
	if err == nil {
		t.Fatal("expected error when --output is missing")
	}
	if !strings.Contains(err.Error(), "--output") {
		t.Errorf("error should mention --output, got %q", err)
	}
}

func TestCachePathCommand(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	c := New(io.Discard, log.ErrorLevel)

	root := c.RootCommand()
	root.SetArgs([]string{"cache", "path"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		t.Fatalf("cache path failed: %v", err)
	}
}

func TestOpenOutputStdout(t *testing.T) {
	for _, path := range []string{"", "-", " - "} {
		w, closeFn, err := openOutput(path)
		if err != nil {
			t.Fatalf("openOutput(%q) error: %v", path, err)
		}
		closeFn()
		if w != os.Stdout {
			t.Errorf("openOutput(%q) should return stdout", path)
		}
	}
}

func TestOpenOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, closeFn, err := openOutput(path)
	if err != nil {
		t.Fatalf("openOutput() error: %v", err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatalf("write: %v", err)
	}
	closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("file content = %q, want %q", data, "data")
	}
}
