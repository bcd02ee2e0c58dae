package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vango-dev/sharedstate/internal/errors"
)

// FileStore keeps every key in one JSON object on disk. The whole file is
// rewritten on each change through a temporary file and a rename, so a
// crash never leaves a half-written file behind.
type FileStore struct {
	path string

	mu    sync.RWMutex
	items map[string]string
	perm  os.FileMode
}

// FileStoreOption configures FileStore behavior.
type FileStoreOption func(*FileStore)

// WithFileMode sets the permission bits for the storage file.
// Default: 0600.
func WithFileMode(perm os.FileMode) FileStoreOption {
	return func(f *FileStore) {
		f.perm = perm
	}
}

// OpenFileStore loads path if it exists, or starts empty if it does not.
// The directory is created on first write.
func OpenFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	f := &FileStore{
		path:  path,
		items: make(map[string]string),
		perm:  0o600,
	}
	for _, opt := range opts {
		opt(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read storage file: %w", err)
	}

	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.items); err != nil {
		return nil, errors.New("E040").
			WithDetail(fmt.Sprintf("%s: %v", path, err)).
			Wrap(err)
	}
	if f.items == nil {
		f.items = make(map[string]string)
	}
	return f, nil
}

// Path returns the storage file path.
func (f *FileStore) Path() string {
	return f.path
}

// GetItem returns the stored text for key.
func (f *FileStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.items[key]
	return v, ok, nil
}

// SetItem stores value under key and rewrites the file.
func (f *FileStore) SetItem(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.items[key]
	f.items[key] = value
	if err := f.flushLocked(); err != nil {
		if had {
			f.items[key] = prev
		} else {
			delete(f.items, key)
		}
		return err
	}
	return nil
}

// RemoveItem deletes key and rewrites the file.
func (f *FileStore) RemoveItem(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.items[key]
	if !had {
		return nil
	}
	delete(f.items, key)
	if err := f.flushLocked(); err != nil {
		f.items[key] = prev
		return err
	}
	return nil
}

// Keys returns all stored keys in ascending order.
func (f *FileStore) Keys(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// flushLocked writes the current items to disk. Caller holds f.mu.
func (f *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(f.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sharedstate-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(f.perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}
