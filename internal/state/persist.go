// Package state holds the persisted client-side stores: cart, favorites,
// filters and theme. Each store is a plain state record plus mutator
// methods; persistence is a cross-cutting concern behind the Persister
// interface, applied uniformly: restore whole on construction, save whole
// on every mutation.
package state

import "context"

// Persisted record names. Each store owns one independently namespaced
// record.
const (
	RecordCart      = "cart"
	RecordFavorites = "favorites"
	RecordFilters   = "filters"
	RecordTheme     = "theme"
)

// Persister stores named JSON snapshots.
// Implementations must be safe for concurrent use.
type Persister interface {
	// Load retrieves the snapshot for name.
	// Returns nil, nil when no snapshot exists yet.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save stores the snapshot for name, replacing any previous one.
	Save(ctx context.Context, name string, data []byte) error

	// Close releases any resources held by the persister.
	Close() error
}
