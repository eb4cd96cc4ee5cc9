package fakestore

import (
	"context"
	"fmt"
	"net/url"

	"shopwise/internal/catalog"
)

// Products fetches the full product list.
func (c *Client) Products(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.get(ctx, "/products", "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id int) (*catalog.Product, error) {
	var product catalog.Product
	path := fmt.Sprintf("/products/%d", id)
	if err := c.get(ctx, "/products/{id}", path, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Categories fetches the list of category names.
func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := c.get(ctx, "/products/categories", "/products/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ProductsByCategory fetches the products of one category, filtered
// server-side. The category name is percent-encoded into the path.
func (c *Client) ProductsByCategory(ctx context.Context, name string) ([]catalog.Product, error) {
	var products []catalog.Product
	path := "/products/category/" + url.PathEscape(name)
	if err := c.get(ctx, "/products/category/{name}", path, &products); err != nil {
		return nil, err
	}
	return products, nil
}
