package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"shopwise/internal/catalog"
)

// CartItem is one cart line: a product snapshot and a quantity ≥ 1.
// The product is a snapshot taken at add time; it is never refreshed
// from the catalog.
type CartItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

type cartSnapshot struct {
	Items []CartItem `json:"items"`
}

// Cart is the persisted shopping cart: at most one line per product id,
// presented in insertion order.
type Cart struct {
	mu     sync.Mutex
	items  map[int]*CartItem
	order  []int
	p      Persister
	logger *slog.Logger
}

// NewCart restores the cart from p. A missing or corrupt record yields an
// empty cart; corruption is logged, not fatal.
func NewCart(ctx context.Context, p Persister, logger *slog.Logger) *Cart {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cart{
		items:  make(map[int]*CartItem),
		p:      p,
		logger: logger,
	}

	data, err := p.Load(ctx, RecordCart)
	if err != nil {
		logger.Warn("restoring cart failed", "error", err)
		return c
	}
	if data == nil {
		return c
	}

	var snap cartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("discarding corrupt cart record", "error", err)
		return c
	}
	for i := range snap.Items {
		item := snap.Items[i]
		if item.Quantity < 1 {
			continue
		}
		id := item.Product.ID
		if _, ok := c.items[id]; ok {
			continue
		}
		c.items[id] = &item
		c.order = append(c.order, id)
	}
	return c
}

// save persists the whole cart. Callers hold c.mu.
func (c *Cart) save(ctx context.Context) error {
	snap := cartSnapshot{Items: c.itemsLocked()}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := c.p.Save(ctx, RecordCart, data); err != nil {
		return fmt.Errorf("persisting cart: %w", err)
	}
	return nil
}

func (c *Cart) itemsLocked() []CartItem {
	out := make([]CartItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

// Add merges qty into the existing line for the product, or appends a new
// line. A qty below 1 counts as 1.
func (c *Cart) Add(ctx context.Context, product catalog.Product, qty int) error {
	if qty < 1 {
		qty = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[product.ID]; ok {
		item.Quantity += qty
	} else {
		c.items[product.ID] = &CartItem{Product: product, Quantity: qty}
		c.order = append(c.order, product.ID)
	}
	return c.save(ctx)
}

// Remove drops the line for the product id. Removing an absent id is a
// no-op that still persists.
func (c *Cart) Remove(ctx context.Context, productID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(productID)
	return c.save(ctx)
}

func (c *Cart) removeLocked(productID int) {
	if _, ok := c.items[productID]; !ok {
		return
	}
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SetQuantity sets the line quantity; qty ≤ 0 removes the line.
func (c *Cart) SetQuantity(ctx context.Context, productID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty <= 0 {
		c.removeLocked(productID)
		return c.save(ctx)
	}
	if item, ok := c.items[productID]; ok {
		item.Quantity = qty
	}
	return c.save(ctx)
}

// Increment adds one to the line quantity.
func (c *Cart) Increment(ctx context.Context, productID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[productID]; ok {
		item.Quantity++
	}
	return c.save(ctx)
}

// Decrement subtracts one from the line quantity; a line at 1 is removed
// rather than kept at zero.
func (c *Cart) Decrement(ctx context.Context, productID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[productID]; ok {
		if item.Quantity <= 1 {
			c.removeLocked(productID)
		} else {
			item.Quantity--
		}
	}
	return c.save(ctx)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[int]*CartItem)
	c.order = nil
	return c.save(ctx)
}

// Quantity returns the line quantity for the product id, zero if absent.
func (c *Cart) Quantity(productID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[productID]; ok {
		return item.Quantity
	}
	return 0
}

// Contains reports whether the product id has a line.
func (c *Cart) Contains(productID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[productID]
	return ok
}

// Items returns the cart lines in insertion order.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemsLocked()
}

// TotalItems returns the sum of quantities over all lines.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns Σ(price × quantity) over all lines.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0.0
	for _, item := range c.items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}
