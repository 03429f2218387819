package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrStorage is the sentinel matched by errors.Is for any persistence failure.
var ErrStorage = errors.New("storage error")

// FileStore persists the user map as one JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file, creating the parent
// directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", ErrStorage, err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the full user map. A missing file is an empty store, not an error.
func (s *FileStore) Load() (map[string]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]User{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorage, s.path, err)
	}

	users := map[string]User{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrStorage, s.path, err)
	}
	return users, nil
}

// Save rewrites the full user map. The document is written to a temp file in
// the same directory and renamed over the target, so readers only ever see a
// complete document.
func (s *FileStore) Save(users map[string]User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding users: %v", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing %s: %v", ErrStorage, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", ErrStorage, s.path, err)
	}
	return nil
}
