// Package catalog holds the product domain model, the filter/sort engine,
// and the cache-aware catalog service.
package catalog

// Product is a catalog entry as returned by the Fake Store API.
// Products are immutable once fetched: the service only ever replaces
// them wholesale on refetch, never mutates them in place.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// Rating is the aggregate review score attached to a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Category is a bare string identifying a product grouping. The universe
// of categories is fetched from the API, not computed locally.
type Category = string
