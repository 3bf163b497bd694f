// Copyright 2025 Certen Protocol
//
// Disk storage for ceremony artifacts. Locator paths map directly onto
// files under the storage root; values are opaque byte blobs.

package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known storage files beside the round directories
const (
	summaryFile = "contributors.json"
	stateFile   = "coordinator.json"
)

// DiskStorage persists round artifacts, contribution metadata and the
// coordinator state snapshot under a root directory.
type DiskStorage struct {
	root string
}

// NewDiskStorage creates the storage root if needed
func NewDiskStorage(root string) (*DiskStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %s: %w", root, err)
	}
	return &DiskStorage{root: root}, nil
}

// Get reads the blob at the storage-relative path. A missing file is an
// error; callers that tolerate absence use Exists first.
func (s *DiskStorage) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Set writes the blob at the storage-relative path, creating parent
// directories as needed.
func (s *DiskStorage) Set(path string, value []byte) error {
	target := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(target, value, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a blob is present at the path
func (s *DiskStorage) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(path)))
	return err == nil
}

// Remove deletes the blob at the path if present
func (s *DiskStorage) Remove(path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// GetContributionsSummary returns the public summary document
func (s *DiskStorage) GetContributionsSummary() ([]byte, error) {
	return s.Get(summaryFile)
}

// SetContributionsSummary stores the public summary document
func (s *DiskStorage) SetContributionsSummary(data []byte) error {
	return s.Set(summaryFile, data)
}

// GetCoordinatorState returns the persisted state snapshot
func (s *DiskStorage) GetCoordinatorState() ([]byte, error) {
	return s.Get(stateFile)
}

// SetCoordinatorState stores the state snapshot
func (s *DiskStorage) SetCoordinatorState(data []byte) error {
	return s.Set(stateFile, data)
}
