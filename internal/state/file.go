package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FilePersister stores each record as <dir>/<name>.json, written
// atomically via temp file + rename.
type FilePersister struct {
	mu  sync.Mutex
	dir string
}

// NewFilePersister creates a file-backed persister rooted at dir.
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{dir: dir}
}

func (p *FilePersister) path(name string) string {
	return filepath.Join(p.dir, name+".json")
}

// Load retrieves the snapshot for name.
func (p *FilePersister) Load(_ context.Context, name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no snapshot yet, not an error
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	return data, nil
}

// Save stores the snapshot for name.
func (p *FilePersister) Save(_ context.Context, name string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	path := p.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming state file: %w", err)
	}
	return nil
}

// Close is a no-op for the file persister.
func (p *FilePersister) Close() error {
	return nil
}
