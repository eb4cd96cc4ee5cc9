// Package cache provides keyed, time-stamped snapshot storage for catalog
// entities. Supports in-memory, file and Redis backends; the file and
// Redis backends let a fresh process start warm.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Well-known cache keys. Per-product slots use ProductKey.
const (
	KeyProducts   = "products"
	KeyCategories = "categories"
)

// ProductKey returns the cache key for a single product slot.
func ProductKey(id int) string {
	return "product:" + strconv.Itoa(id)
}

// Snapshot is one cached entity payload. A snapshot is immutable once
// stored: refetches replace the whole value, never merge into it.
type Snapshot struct {
	// Payload is the raw JSON body of the entity.
	Payload json.RawMessage `json:"payload"`

	// FetchedAt is when the payload was fetched. Always set: a snapshot
	// without a fetch time is never constructed.
	FetchedAt time.Time `json:"fetched_at"`

	// Checksum is the xxhash of Payload, letting callers detect refetches
	// that returned identical data.
	Checksum uint64 `json:"checksum"`
}

// NewSnapshot builds a snapshot for payload fetched at now.
func NewSnapshot(payload []byte, now time.Time) *Snapshot {
	return &Snapshot{
		Payload:   payload,
		FetchedAt: now,
		Checksum:  xxhash.Sum64(payload),
	}
}

// Fresh reports whether the snapshot is within its freshness window.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.FetchedAt) < ttl
}

// Decode unmarshals the payload into out.
func (s *Snapshot) Decode(out any) error {
	if err := json.Unmarshal(s.Payload, out); err != nil {
		return fmt.Errorf("decoding cached payload: %w", err)
	}
	return nil
}

// Cache stores entity snapshots by key.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the snapshot for key.
	// Returns nil, nil when no snapshot exists yet.
	Get(ctx context.Context, key string) (*Snapshot, error)

	// Set stores the snapshot for key, replacing any previous one.
	Set(ctx context.Context, key string, snap *Snapshot) error

	// Close releases any resources held by the cache.
	Close() error
}
