package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme prefixes every blob reference
const Scheme = "blob://"

var (
	// ErrInvalidRef is returned for references that are not blob references
	// or that try to escape the store directory
	ErrInvalidRef = errors.New("invalid blob reference")
	// ErrNotFound is returned when a reference has no file behind it
	ErrNotFound = errors.New("blob not found")
)

// BlobStore stores uploaded images in a directory
type BlobStore struct {
	dir   string
	blobs map[string]bool
	mu    sync.RWMutex
}

// NewBlobStore creates the directory if needed and indexes the blobs already in it
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	s := &BlobStore{
		dir:   dir,
		blobs: make(map[string]bool),
	}
	if err := s.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing uploads: %w", err)
	}
	return s, nil
}

func (s *BlobStore) scanExistingFiles() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".tmp") {
			continue
		}
		s.blobs[name] = true
	}
	return nil
}

// Save writes r to a new blob and returns its reference. ext is the file
// extension including the dot, e.g. ".jpg".
func (s *BlobStore) Save(r io.Reader, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + strings.ToLower(ext)
	filename := filepath.Join(s.dir, name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	s.mu.Lock()
	s.blobs[name] = true
	s.mu.Unlock()

	return Scheme + name, nil
}

// Open returns a reader for the blob behind ref
func (s *BlobStore) Open(ref string) (io.ReadCloser, error) {
	name, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Remove deletes the blob behind ref. Removing a missing blob is not an error.
func (s *BlobStore) Remove(ref string) error {
	name, err := ParseRef(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}

	s.mu.Lock()
	delete(s.blobs, name)
	s.mu.Unlock()
	return nil
}

// Exists reports whether ref points at a stored blob
func (s *BlobStore) Exists(ref string) bool {
	name, err := ParseRef(ref)
	if err != nil {
		return false
	}

	s.mu.RLock()
	known := s.blobs[name]
	s.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
		s.mu.Lock()
		s.blobs[name] = true
		s.mu.Unlock()
		return true
	}
	return false
}

// Prune removes every blob whose reference is not in keep and returns how many were removed
func (s *BlobStore) Prune(keep []string) (int, error) {
	live := make(map[string]bool, len(keep))
	for _, ref := range keep {
		if name, err := ParseRef(ref); err == nil {
			live[name] = true
		}
	}

	s.mu.RLock()
	var stale []string
	for name := range s.blobs {
		if !live[name] {
			stale = append(stale, name)
		}
	}
	s.mu.RUnlock()

	var errs []error
	removed := 0
	for _, name := range stale {
		if err := s.Remove(Scheme + name); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// Dir returns the store directory
func (s *BlobStore) Dir() string {
	return s.dir
}

// Count returns the number of stored blobs
func (s *BlobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// IsRef reports whether ref uses the blob scheme
func IsRef(ref string) bool {
	return strings.HasPrefix(ref, Scheme)
}

// ParseRef returns the file name inside a blob reference
func ParseRef(ref string) (string, error) {
	if !IsRef(ref) {
		return "", ErrInvalidRef
	}
	name := strings.TrimPrefix(ref, Scheme)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidRef
	}
	return name, nil
}
