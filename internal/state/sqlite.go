package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS client_state (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLitePersister stores records in a single-file SQLite database.
type SQLitePersister struct {
	db *sql.DB
}

// NewSQLitePersister opens (creating if needed) the database at path.
// WAL mode allows concurrent reads while writing.
func NewSQLitePersister(path string) (*SQLitePersister, error) {
	if path == "" {
		path = ".shopwise/state.db"
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_journal=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging SQLite database: %w", err)
	}

	if _, err := db.Exec(createStateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating client_state table: %w", err)
	}

	return &SQLitePersister{db: db}, nil
}

// Load retrieves the snapshot for name.
func (p *SQLitePersister) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM client_state WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // no snapshot yet, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("loading state %q: %w", name, err)
	}
	return data, nil
}

// Save stores the snapshot for name.
func (p *SQLitePersister) Save(ctx context.Context, name string, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO client_state (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving state %q: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (p *SQLitePersister) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
