package settings

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/echiweshe/sceneforge/pkg/errors"
)

// FileStore persists settings as a TOML file.
type FileStore struct {
	path string
}

// NewFileStore creates a TOML-backed store. The file need not exist yet;
// its directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

var _ Store = (*FileStore)(nil)

// Load reads the file, returning defaults when it does not exist.
// Fields missing from the file keep their default values.
func (f *FileStore) Load(_ context.Context) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, errors.Wrap(errors.ErrCodeIO, err, "reading settings %q", f.path)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing settings %q", f.path)
	}
	return s, nil
}

// Save writes the settings, creating parent directories as needed.
func (f *FileStore) Save(_ context.Context, s Settings) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encoding settings")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "creating settings directory")
	}
	if err := os.WriteFile(f.path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "writing settings %q", f.path)
	}
	return nil
}

// Close is a no-op for the file backend.
func (f *FileStore) Close() error {
	return nil
}
