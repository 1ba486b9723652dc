// Package blob is the durable byte store for uploaded DICOM files and
// report documents, keyed by relative paths like
// "Center_A/1.2.840..._20250114_093011_ab12cd34.dcm".
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists raw file payloads under relative keys.
type Store interface {
	// Save writes data at key, creating parent directories.
	Save(key string, data []byte) error
	// Delete removes the payload at key.
	Delete(key string) error
	// Open reads the payload back.
	Open(key string) ([]byte, error)
	// Path resolves a key to an absolute filesystem path, if the store
	// has one.
	Path(key string) (string, error)
}

// FSStore keeps payloads on the local filesystem under a media root.
type FSStore struct {
	root string
}

// NewFSStore creates the media root if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("media root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &FSStore{root: abs}, nil
}

// resolve joins key under the root, rejecting traversal outside it.
func (s *FSStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes media root", key)
	}
	return full, nil
}

func (s *FSStore) Save(key string, data []byte) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", key, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *FSStore) Delete(key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *FSStore) Open(key string) ([]byte, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, nil
}

func (s *FSStore) Path(key string) (string, error) {
	return s.resolve(key)
}
