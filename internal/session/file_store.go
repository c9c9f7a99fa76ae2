package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type fileEntry struct {
	Values  map[string]string `json:"values"`
	Expires time.Time         `json:"expires,omitempty"`
}

// FileStore keeps one JSON file per session under a directory. It is meant
// for the command line client, which has no long-running process to hold
// sessions in memory.
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates the directory when missing
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (f *FileStore) path(id string) (string, error) {
	if !fileIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

func (f *FileStore) Save(_ context.Context, id string, values map[string]string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := fileEntry{Values: values}
	if ttl > 0 {
		entry.Expires = f.now().Add(ttl)
	}
	return f.write(id, entry)
}

func (f *FileStore) write(id string, entry fileEntry) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (f *FileStore) read(id string) (fileEntry, error) {
	p, err := f.path(id)
	if err != nil {
		return fileEntry{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return fileEntry{}, ErrNotFound
	}
	if err != nil {
		return fileEntry{}, fmt.Errorf("failed to read session: %w", err)
	}
	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return fileEntry{}, fmt.Errorf("failed to decode session: %w", err)
	}
	if !entry.Expires.IsZero() && !f.now().Before(entry.Expires) {
		_ = os.Remove(p)
		return fileEntry{}, ErrNotFound
	}
	return entry, nil
}

func (f *FileStore) Load(_ context.Context, id string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, err := f.read(id)
	if err != nil {
		return nil, err
	}
	return entry.Values, nil
}

func (f *FileStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, err := f.read(id)
	if err != nil {
		return err
	}
	entry.Expires = time.Time{}
	if ttl > 0 {
		entry.Expires = f.now().Add(ttl)
	}
	return f.write(id, entry)
}

func (f *FileStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
