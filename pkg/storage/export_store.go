// Package storage keeps rendered schedule exports on local disk and
// signs the download links that reference them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportStore holds schedule export artifacts in one flat directory.
// Artifact names are opaque to callers; names carrying path separators
// or leading dots are rejected.
type ExportStore struct {
	dir string
}

// NewExportStore creates the artifact directory if needed.
func NewExportStore(dir string) (*ExportStore, error) {
	if dir == "" {
		dir = "data/exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &ExportStore{dir: dir}, nil
}

// Save writes one rendered artifact and returns its name.
func (s *ExportStore) Save(name string, payload []byte) (string, error) {
	path, err := s.artifactPath(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write export artifact: %w", err)
	}
	return name, nil
}

// Open returns a read handle for a stored artifact.
func (s *ExportStore) Open(name string) (*os.File, error) {
	path, err := s.artifactPath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export artifact: %w", err)
	}
	return file, nil
}

// CleanupOlderThan deletes artifacts last modified before now-ttl and
// reports how many were removed.
func (s *ExportStore) CleanupOlderThan(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("scan export directory: %w", err)
	}
	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove stale export: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *ExportStore) artifactPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
