// Package previewstore hands out local preview handles for attachments that
// have been selected but not uploaded yet. A handle is a file:// URL pointing
// at a private copy of the bytes; releasing it removes the copy.
package previewstore

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/itchan-dev/caster/shared/domain"
)

// ErrUnknownHandle is returned when releasing a handle that is not live,
// including one that was already released.
var ErrUnknownHandle = errors.New("unknown preview handle")

type Store struct {
	rootPath string

	mu   sync.Mutex
	live map[string]string // handle URL -> absolute path
}

func New(rootPath string) (*Store, error) {
	p := filepath.Clean(rootPath)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create preview directory %s: %w", p, err)
	}
	return &Store{rootPath: p, live: make(map[string]string)}, nil
}

// NewTemp creates a store in a fresh directory under parent (os.TempDir() if empty).
func NewTemp(parent string) (*Store, error) {
	dir, err := os.MkdirTemp(parent, "caster-previews-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return New(dir)
}

// Allocate copies the file into the store and returns its handle.
func (s *Store) Allocate(file domain.File) (string, error) {
	ext := filepath.Ext(filepath.Base(file.Name))
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	fullPath := filepath.Join(s.rootPath, uuid.NewString()+ext)

	if err := os.WriteFile(fullPath, file.Data, 0o600); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write preview: %w", err)
	}

	handle := (&url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}).String()

	s.mu.Lock()
	s.live[handle] = fullPath
	s.mu.Unlock()
	return handle, nil
}

// Release deletes the copy behind handle. Releasing twice is an error.
func (s *Store) Release(handle string) error {
	s.mu.Lock()
	fullPath, ok := s.live[handle]
	if ok {
		delete(s.live, handle)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete preview: %w", err)
	}
	return nil
}

// Open reads a live preview back, e.g. to render it.
func (s *Store) Open(handle string) (io.ReadCloser, error) {
	s.mu.Lock()
	fullPath, ok := s.live[handle]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open preview: %w", err)
	}
	return file, nil
}

// Live is the number of handles allocated and not yet released.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Cleanup removes the whole store directory, live handles included.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	s.live = make(map[string]string)
	s.mu.Unlock()

	if err := os.RemoveAll(s.rootPath); err != nil {
		return fmt.Errorf("failed to delete preview directory: %w", err)
	}
	return nil
}
