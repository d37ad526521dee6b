package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Saver writes received attachments under the client's data directory.
// Files keep their original base name; images get a fresh random name so
// repeated screenshots never clobber each other.
type Saver struct {
	dir string
}

// NewSaver returns a Saver rooted at dir.
func NewSaver(dir string) *Saver {
	return &Saver{dir: dir}
}

// SaveFile stores data under files/ using the sender-supplied name, reduced
// to its base so a malicious name cannot escape the directory.
func (s *Saver) SaveFile(name string, data []byte) (string, error) {
	dir := filepath.Join(s.dir, "files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return path, nil
}

// SaveImage stores data under images/ with a generated png name.
func (s *Saver) SaveImage(data []byte) (string, error) {
	dir := filepath.Join(s.dir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path, nil
}
