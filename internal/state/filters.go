package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"shopwise/internal/catalog"
)

// Filters is the persisted filter specification store.
type Filters struct {
	mu      sync.Mutex
	filters catalog.Filters
	p       Persister
	logger  *slog.Logger
}

// NewFilters restores the filter spec from p; missing or corrupt records
// yield the defaults.
func NewFilters(ctx context.Context, p Persister, logger *slog.Logger) *Filters {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Filters{
		filters: catalog.DefaultFilters(),
		p:       p,
		logger:  logger,
	}

	data, err := p.Load(ctx, RecordFilters)
	if err != nil {
		logger.Warn("restoring filters failed", "error", err)
		return f
	}
	if data == nil {
		return f
	}

	var restored catalog.Filters
	if err := json.Unmarshal(data, &restored); err != nil {
		logger.Warn("discarding corrupt filters record", "error", err)
		return f
	}
	if !restored.SortBy.Valid() {
		restored.SortBy = catalog.SortDefault
	}
	if restored.Category == "" {
		restored.Category = catalog.CategoryAll
	}
	restored.PriceRange = clampRange(restored.PriceRange.Min, restored.PriceRange.Max)
	f.filters = restored
	return f
}

func (f *Filters) save(ctx context.Context) error {
	data, err := json.Marshal(f.filters)
	if err != nil {
		return fmt.Errorf("encoding filters: %w", err)
	}
	if err := f.p.Save(ctx, RecordFilters, data); err != nil {
		return fmt.Errorf("persisting filters: %w", err)
	}
	return nil
}

// Get returns the current filter specification.
func (f *Filters) Get() catalog.Filters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters
}

// SetSearchQuery updates the search query.
func (f *Filters) SetSearchQuery(ctx context.Context, query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters.SearchQuery = query
	return f.save(ctx)
}

// SetCategory updates the category filter; empty means "all".
func (f *Filters) SetCategory(ctx context.Context, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if category == "" {
		category = catalog.CategoryAll
	}
	f.filters.Category = category
	return f.save(ctx)
}

// SetSortBy updates the sort option, rejecting unknown values.
func (f *Filters) SetSortBy(ctx context.Context, sortBy catalog.SortOption) error {
	if !sortBy.Valid() {
		return fmt.Errorf("unknown sort option %q", sortBy)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters.SortBy = sortBy
	return f.save(ctx)
}

// SetPriceRange updates the price window. Inverted input is clamped by
// swapping rather than rejected, and negative bounds floor at zero, so a
// persisted range is always valid.
func (f *Filters) SetPriceRange(ctx context.Context, min, max float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters.PriceRange = clampRange(min, max)
	return f.save(ctx)
}

// Reset restores the defaults.
func (f *Filters) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = catalog.DefaultFilters()
	return f.save(ctx)
}

func clampRange(min, max float64) catalog.PriceRange {
	if min < 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	if min > max {
		min, max = max, min
	}
	return catalog.PriceRange{Min: min, Max: max}
}
