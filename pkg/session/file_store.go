package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps one artifact as a plain cookie export at path. The name
// is not part of the file format.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a store over the export at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the export location
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Save(a *Artifact) error {
	if a == nil || len(a.Cookies) == 0 {
		return ErrInvalid
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(a.Cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Load(name string) (*Artifact, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	cookies, err := ParseExport(data)
	if err != nil {
		return nil, err
	}
	var imported time.Time
	if info, err := os.Stat(f.path); err == nil {
		imported = info.ModTime()
	}
	return &Artifact{Name: name, Cookies: cookies, ImportedAt: imported}, nil
}

func (f *FileStore) Delete(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (f *FileStore) Exists(string) bool {
	_, err := os.Stat(f.path)
	return err == nil
}
