package catalog

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// SortOption selects the ordering applied after filtering.
type SortOption string

const (
	SortDefault   SortOption = "default"
	SortPriceAsc  SortOption = "price-asc"
	SortPriceDesc SortOption = "price-desc"
	SortRating    SortOption = "rating"
	SortName      SortOption = "name"
)

// Valid reports whether s is a known sort option.
func (s SortOption) Valid() bool {
	switch s {
	case SortDefault, SortPriceAsc, SortPriceDesc, SortRating, SortName:
		return true
	}
	return false
}

// PriceRange is an inclusive price window.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filters is a filter specification for a product list.
// Category "all" means no category filter.
type Filters struct {
	Category    string     `json:"category"`
	SearchQuery string     `json:"searchQuery"`
	SortBy      SortOption `json:"sortBy"`
	PriceRange  PriceRange `json:"priceRange"`
}

// CategoryAll disables category filtering.
const CategoryAll = "all"

// DefaultFilters returns the filter defaults.
func DefaultFilters() Filters {
	return Filters{
		Category:    CategoryAll,
		SearchQuery: "",
		SortBy:      SortDefault,
		PriceRange:  PriceRange{Min: 0, Max: 1000},
	}
}

// Fingerprint returns a stable hash of the filter specification, used as
// a memoization key alongside the product-list checksum.
func (f Filters) Fingerprint() uint64 {
	d := xxhash.New()
	for _, part := range []string{
		f.Category,
		f.SearchQuery,
		string(f.SortBy),
		strconv.FormatFloat(f.PriceRange.Min, 'g', -1, 64),
		strconv.FormatFloat(f.PriceRange.Max, 'g', -1, 64),
	} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// ApplyFilters derives a filtered, sorted view of products. It is pure:
// deterministic, no side effects, and the input slice is never mutated.
//
// The pipeline order is fixed: category filter, text search, price range,
// then a stable sort.
func ApplyFilters(products []Product, f Filters) []Product {
	filtered := make([]Product, 0, len(products))

	query := strings.ToLower(strings.TrimSpace(f.SearchQuery))
	for _, p := range products {
		if f.Category != CategoryAll && p.Category != f.Category {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		if p.Price < f.PriceRange.Min || p.Price > f.PriceRange.Max {
			continue
		}
		filtered = append(filtered, p)
	}

	// Stable sorts so equal keys keep their pre-sort relative order.
	switch f.SortBy {
	case SortPriceAsc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Price < filtered[j].Price
		})
	case SortPriceDesc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Price > filtered[j].Price
		})
	case SortRating:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Rating.Rate > filtered[j].Rating.Rate
		})
	case SortName:
		sort.SliceStable(filtered, func(i, j int) bool {
			return titleLess(filtered[i].Title, filtered[j].Title)
		})
	default:
		// SortDefault leaves the filtered order unchanged.
	}

	return filtered
}

func matchesQuery(p Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.Description), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

// titleLess orders titles case-insensitively, falling back to a raw
// comparison for case-only differences.
func titleLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// FilterEngine memoizes the last ApplyFilters result, keyed by the
// product-list checksum and the filter fingerprint. The catalog list only
// changes on refetch and filters change one field at a time, so a single
// memo slot captures the common case.
type FilterEngine struct {
	mu         sync.Mutex
	listSum    uint64
	filtersSum uint64
	result     []Product
	valid      bool
}

// NewFilterEngine creates an empty memoizing engine.
func NewFilterEngine() *FilterEngine {
	return &FilterEngine{}
}

// Apply returns ApplyFilters(products, f), reusing the memoized result
// when neither the list (identified by listChecksum) nor the filters
// changed. The returned slice is always a fresh copy.
func (e *FilterEngine) Apply(products []Product, listChecksum uint64, f Filters) []Product {
	filtersSum := f.Fingerprint()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.valid || e.listSum != listChecksum || e.filtersSum != filtersSum {
		e.result = ApplyFilters(products, f)
		e.listSum = listChecksum
		e.filtersSum = filtersSum
		e.valid = true
	}

	out := make([]Product, len(e.result))
	copy(out, e.result)
	return out
}
