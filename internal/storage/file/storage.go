package file

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Storage provides a simple file-based storage backend on top of an afero filesystem.
// Output directories are expected to exist; Storage never creates them.
type Storage struct {
	fs afero.Fs
}

// NewStorage creates a new Storage over fs. Pass afero.NewOsFs() for the real filesystem.
func NewStorage(fs afero.Fs) *Storage {
	return &Storage{fs: fs}
}

// List returns the paths of all direct children of dir, including subdirectories,
// sorted by name. The listing is read once and not refreshed.
func (s *Storage) List(_ context.Context, dir string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	return paths, nil
}

// Save writes src to dir/filename, replacing any existing file.
func (s *Storage) Save(_ context.Context, dir, filename string, src io.Reader) (string, error) {
	dstPath := filepath.Join(dir, filename)

	dst, err := s.fs.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Load opens the file and returns a reader.
func (s *Storage) Load(_ context.Context, path string) (io.ReadCloser, error) {
	return s.fs.Open(path)
}
