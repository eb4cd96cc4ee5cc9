package catalog

import (
	"reflect"
	"sort"
	"testing"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Title: "Mens Cotton Jacket", Price: 55.99, Description: "great outerwear jacket", Category: "men's clothing", Rating: Rating{Rate: 4.7, Count: 500}},
		{ID: 2, Title: "Gold Petite Micropave", Price: 168, Description: "inspired ring", Category: "jewelery", Rating: Rating{Rate: 3.9, Count: 70}},
		{ID: 3, Title: "Fjallraven Backpack", Price: 109.95, Description: "fits 15 inch laptops", Category: "men's clothing", Rating: Rating{Rate: 3.9, Count: 120}},
		{ID: 4, Title: "WD 2TB External Drive", Price: 64, Description: "USB 3.0 portable storage", Category: "electronics", Rating: Rating{Rate: 3.3, Count: 203}},
		{ID: 5, Title: "Acer Monitor", Price: 599, Description: "21.5 inch full hd ips display", Category: "electronics", Rating: Rating{Rate: 2.9, Count: 250}},
		{ID: 6, Title: "Womens Rain Jacket", Price: 39.99, Description: "lightweight rain jacket with striped lining", Category: "women's clothing", Rating: Rating{Rate: 3.8, Count: 679}},
	}
}

func wideRange() PriceRange {
	return PriceRange{Min: 0, Max: 10000}
}

func TestApplyFiltersDeterministic(t *testing.T) {
	products := sampleProducts()
	f := Filters{Category: "electronics", SearchQuery: "a", SortBy: SortPriceAsc, PriceRange: wideRange()}

	first := ApplyFilters(products, f)
	for i := 0; i < 10; i++ {
		if got := ApplyFilters(products, f); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: got %v, want %v", i, got, first)
		}
	}
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	products := sampleProducts()
	before := make([]Product, len(products))
	copy(before, products)

	ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortPriceDesc, PriceRange: wideRange()})

	if !reflect.DeepEqual(products, before) {
		t.Fatal("input slice was mutated")
	}
}

func TestApplyFiltersCategory(t *testing.T) {
	products := sampleProducts()

	t.Run("AllIsNoop", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortDefault, PriceRange: wideRange()})
		if !reflect.DeepEqual(got, products) {
			t.Fatalf("expected all products unchanged, got %d of %d", len(got), len(products))
		}
	})

	t.Run("ExactMatch", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: "electronics", SortBy: SortDefault, PriceRange: wideRange()})
		if len(got) != 2 {
			t.Fatalf("expected 2 electronics, got %d", len(got))
		}
		for _, p := range got {
			if p.Category != "electronics" {
				t.Errorf("product %d has category %q", p.ID, p.Category)
			}
		}
	})

	t.Run("CaseSensitive", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: "Electronics", SortBy: SortDefault, PriceRange: wideRange()})
		if len(got) != 0 {
			t.Fatalf("category match must be case-sensitive, got %d products", len(got))
		}
	})
}

func TestApplyFiltersSearch(t *testing.T) {
	products := sampleProducts()

	t.Run("MatchesTitleDescriptionCategory", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SearchQuery: "JACKET", SortBy: SortDefault, PriceRange: wideRange()})
		if len(got) != 2 {
			t.Fatalf("expected 2 jacket matches, got %d", len(got))
		}

		got = ApplyFilters(products, Filters{Category: CategoryAll, SearchQuery: "jewelery", SortBy: SortDefault, PriceRange: wideRange()})
		if len(got) != 1 || got[0].ID != 2 {
			t.Fatalf("expected category text match for product 2, got %v", got)
		}

		got = ApplyFilters(products, Filters{Category: CategoryAll, SearchQuery: "laptops", SortBy: SortDefault, PriceRange: wideRange()})
		if len(got) != 1 || got[0].ID != 3 {
			t.Fatalf("expected description match for product 3, got %v", got)
		}
	})

	t.Run("TrimmedWhitespaceIsNoop", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SearchQuery: "   ", SortBy: SortDefault, PriceRange: wideRange()})
		if len(got) != len(products) {
			t.Fatalf("whitespace-only query must not filter, got %d products", len(got))
		}
	})
}

func TestApplyFiltersPriceRange(t *testing.T) {
	products := sampleProducts()
	f := Filters{Category: CategoryAll, SortBy: SortDefault, PriceRange: PriceRange{Min: 40, Max: 110}}

	got := ApplyFilters(products, f)
	if len(got) == 0 {
		t.Fatal("expected products in range")
	}
	for _, p := range got {
		if p.Price < 40 || p.Price > 110 {
			t.Errorf("product %d price %.2f outside [40, 110]", p.ID, p.Price)
		}
	}

	// Bounds are inclusive.
	exact := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortDefault, PriceRange: PriceRange{Min: 64, Max: 64}})
	if len(exact) != 1 || exact[0].ID != 4 {
		t.Fatalf("expected exact-price product 4, got %v", exact)
	}
}

func TestApplyFiltersSort(t *testing.T) {
	products := sampleProducts()

	t.Run("PriceAsc", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortPriceAsc, PriceRange: wideRange()})
		if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Price < got[j].Price }) {
			t.Fatalf("prices not non-decreasing: %v", prices(got))
		}
	})

	t.Run("PriceDesc", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortPriceDesc, PriceRange: wideRange()})
		for i := 1; i < len(got); i++ {
			if got[i].Price > got[i-1].Price {
				t.Fatalf("prices not non-increasing: %v", prices(got))
			}
		}
	})

	t.Run("RatingDescStable", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortRating, PriceRange: wideRange()})
		for i := 1; i < len(got); i++ {
			if got[i].Rating.Rate > got[i-1].Rating.Rate {
				t.Fatal("ratings not non-increasing")
			}
		}
		// Products 2 and 3 tie at 3.9; input order must survive the sort.
		idx := func(id int) int {
			for i, p := range got {
				if p.ID == id {
					return i
				}
			}
			t.Fatalf("product %d missing from result", id)
			return -1
		}
		if idx(2) > idx(3) {
			t.Fatal("stable sort broke the tie order of products 2 and 3")
		}
	})

	t.Run("Name", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortName, PriceRange: wideRange()})
		for i := 1; i < len(got); i++ {
			if titleLess(got[i].Title, got[i-1].Title) {
				t.Fatalf("titles out of order: %q before %q", got[i-1].Title, got[i].Title)
			}
		}
	})

	t.Run("DefaultPreservesOrder", func(t *testing.T) {
		got := ApplyFilters(products, Filters{Category: CategoryAll, SortBy: SortDefault, PriceRange: wideRange()})
		if !reflect.DeepEqual(got, products) {
			t.Fatal("default sort must preserve input order exactly")
		}
	})
}

func TestFiltersFingerprint(t *testing.T) {
	a := DefaultFilters()
	b := DefaultFilters()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical filters must share a fingerprint")
	}

	b.SearchQuery = "jacket"
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different filters must not collide on the obvious case")
	}

	// Field boundaries must not blur: "ab"+"c" vs "a"+"bc".
	c := Filters{Category: "ab", SearchQuery: "c", SortBy: SortDefault, PriceRange: wideRange()}
	d := Filters{Category: "a", SearchQuery: "bc", SortBy: SortDefault, PriceRange: wideRange()}
	if c.Fingerprint() == d.Fingerprint() {
		t.Fatal("fingerprint must separate fields")
	}
}

func TestFilterEngineMemo(t *testing.T) {
	products := sampleProducts()
	engine := NewFilterEngine()
	f := Filters{Category: "electronics", SortBy: SortPriceAsc, PriceRange: wideRange()}

	first := engine.Apply(products, 1, f)
	second := engine.Apply(products, 1, f)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("memoized result differs")
	}

	// Mutating a returned slice must not poison the memo.
	if len(second) > 0 {
		second[0].Title = "mutated"
	}
	third := engine.Apply(products, 1, f)
	if len(third) > 0 && third[0].Title == "mutated" {
		t.Fatal("engine returned a shared slice")
	}

	// A new list checksum forces recomputation against the new list.
	fewer := products[:2]
	refetched := engine.Apply(fewer, 2, f)
	if len(refetched) > len(fewer) {
		t.Fatal("engine served a stale memo after the list changed")
	}
}

func prices(products []Product) []float64 {
	out := make([]float64, len(products))
	for i, p := range products {
		out[i] = p.Price
	}
	return out
}
