package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

type favoritesSnapshot struct {
	Favorites []int `json:"favorites"`
}

// Favorites is the persisted set of favorited product ids. Membership
// only: no duplicates, order irrelevant.
type Favorites struct {
	mu     sync.Mutex
	ids    map[int]struct{}
	p      Persister
	logger *slog.Logger
}

// NewFavorites restores the set from p; missing or corrupt records yield
// an empty set.
func NewFavorites(ctx context.Context, p Persister, logger *slog.Logger) *Favorites {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Favorites{
		ids:    make(map[int]struct{}),
		p:      p,
		logger: logger,
	}

	data, err := p.Load(ctx, RecordFavorites)
	if err != nil {
		logger.Warn("restoring favorites failed", "error", err)
		return f
	}
	if data == nil {
		return f
	}

	var snap favoritesSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("discarding corrupt favorites record", "error", err)
		return f
	}
	for _, id := range snap.Favorites {
		f.ids[id] = struct{}{}
	}
	return f
}

func (f *Favorites) save(ctx context.Context) error {
	snap := favoritesSnapshot{Favorites: f.idsLocked()}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding favorites: %w", err)
	}
	if err := f.p.Save(ctx, RecordFavorites, data); err != nil {
		return fmt.Errorf("persisting favorites: %w", err)
	}
	return nil
}

func (f *Favorites) idsLocked() []int {
	ids := make([]int, 0, len(f.ids))
	for id := range f.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Toggle flips membership for the id. Toggling twice restores the
// original state.
func (f *Favorites) Toggle(ctx context.Context, productID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[productID]; ok {
		delete(f.ids, productID)
	} else {
		f.ids[productID] = struct{}{}
	}
	return f.save(ctx)
}

// Add inserts the id; adding an existing id is a no-op.
func (f *Favorites) Add(ctx context.Context, productID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[productID] = struct{}{}
	return f.save(ctx)
}

// Remove deletes the id.
func (f *Favorites) Remove(ctx context.Context, productID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, productID)
	return f.save(ctx)
}

// Contains reports membership.
func (f *Favorites) Contains(productID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[productID]
	return ok
}

// Clear empties the set.
func (f *Favorites) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = make(map[int]struct{})
	return f.save(ctx)
}

// IDs returns the favorited ids in ascending order.
func (f *Favorites) IDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idsLocked()
}

// Len returns the number of favorites.
func (f *Favorites) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}
