package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Uploads persists generated documents (admission certificates and the
// like) on disk under a base directory that is also served statically
// under the /uploads prefix.
type Uploads struct {
	baseDir string
}

// NewUploads ensures the base directory exists and returns a handle.
func NewUploads(baseDir string) (*Uploads, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &Uploads{baseDir: baseDir}, nil
}

// Save writes the given bytes to the provided relative path under the base
// dir and returns the relative filename.
func (s *Uploads) Save(filename string, data []byte) (string, error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare uploads directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *Uploads) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *Uploads) Delete(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Dir exposes the base directory for static file serving.
func (s *Uploads) Dir() string {
	return s.baseDir
}

// Path exposes the underlying absolute path.
func (s *Uploads) Path(filename string) string {
	return s.resolve(filename)
}

func (s *Uploads) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}
