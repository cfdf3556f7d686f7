// Package storage persists enrollment photos on disk. Stored photos back
// the audit trail for face profiles and feed bulk re-embedding.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// PhotoStore writes enrollment photos under a base directory, one
// subdirectory per student.
type PhotoStore struct {
	baseDir string
}

// NewPhotoStore creates the base directory if it does not exist.
func NewPhotoStore(baseDir string) (*PhotoStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("photo directory not configured")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create photo directory %s: %w", baseDir, err)
	}
	return &PhotoStore{baseDir: baseDir}, nil
}

// Save writes photo bytes for a student and returns the path relative to
// the base directory. Filenames are random so replaced photos are never
// overwritten.
func (s *PhotoStore) Save(studentID int64, data []byte) (string, error) {
	dir := filepath.Join(s.baseDir, fmt.Sprintf("%d", studentID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create student photo directory: %w", err)
	}

	name := uuid.New().String() + ".jpg"
	relPath := filepath.Join(fmt.Sprintf("%d", studentID), name)
	if err := os.WriteFile(filepath.Join(s.baseDir, relPath), data, 0o644); err != nil {
		return "", fmt.Errorf("could not write photo: %w", err)
	}
	return relPath, nil
}

// Load reads back a stored photo by its relative path.
func (s *PhotoStore) Load(relPath string) ([]byte, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || clean == ".." || len(clean) >= 3 && clean[:3] == ".."+string(filepath.Separator) {
		return nil, fmt.Errorf("invalid photo path %q", relPath)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, clean))
	if err != nil {
		return nil, fmt.Errorf("could not read photo %s: %w", relPath, err)
	}
	return data, nil
}
