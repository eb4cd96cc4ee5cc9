package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileCache implements Cache with one JSON file per key under a
// directory. Suitable for a CLI that wants to start warm across runs.
type FileCache struct {
	mu  sync.RWMutex
	dir string
}

// NewFileCache creates a file-backed cache rooted at dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

func (c *FileCache) path(key string) string {
	// Keys like "product:3" become "product-3.json".
	name := strings.ReplaceAll(key, ":", "-") + ".json"
	return filepath.Join(c.dir, name)
}

// Get retrieves the snapshot for key from its file.
func (c *FileCache) Get(_ context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no snapshot yet, not an error
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing cache file: %w", err)
	}
	return &snap, nil
}

// Set stores the snapshot for key, writing atomically via temp file + rename.
func (c *FileCache) Set(_ context.Context, key string, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Close is a no-op for the file cache.
func (c *FileCache) Close() error {
	return nil
}
