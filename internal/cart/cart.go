// Package cart holds shopping carts. A line's quantity never drops below one
// except by explicit removal.
package cart

import (
	"slices"
	"sync"
	"time"

	"github.com/eppla/storefront/internal/types"
)

// Cart is an ordered list of product lines. It is safe for concurrent use.
type Cart struct {
	mu      sync.Mutex
	items   []types.CartItem
	touched time.Time
	now     func() time.Time
}

// New creates an empty cart
func New() *Cart {
	return newCart(time.Now)
}

func newCart(now func() time.Time) *Cart {
	return &Cart{now: now, touched: now()}
}

func (c *Cart) find(id string) int {
	return slices.IndexFunc(c.items, func(i types.CartItem) bool { return i.Product.ID == id })
}

// Add puts one unit of product in the cart, incrementing an existing line
func (c *Cart) Add(product types.Product) types.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()

	if i := c.find(product.ID); i >= 0 {
		c.items[i].Quantity++
		return c.items[i]
	}
	item := types.CartItem{Product: product, Quantity: 1}
	c.items = append(c.items, item)
	return item
}

// UpdateQuantity adds delta to a line's quantity, flooring at one. It
// reports false when the product is not in the cart.
func (c *Cart) UpdateQuantity(id string, delta int) (types.CartItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()

	i := c.find(id)
	if i < 0 {
		return types.CartItem{}, false
	}
	c.items[i].Quantity = max(1, c.items[i].Quantity+delta)
	return c.items[i], true
}

// Remove deletes a line. Removing an absent product is a no-op.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()

	c.items = slices.DeleteFunc(c.items, func(i types.CartItem) bool { return i.Product.ID == id })
}

// Items returns a copy of the lines in insertion order
func (c *Cart) Items() []types.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Count returns the total number of units
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, i := range c.items {
		n += i.Quantity
	}
	return n
}

// Total returns the sum of line subtotals
func (c *Cart) Total() types.Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total types.Money
	for _, i := range c.items {
		total += i.Subtotal()
	}
	return total
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touched = c.now()
	c.items = nil
}

// Summary is a serializable view of a cart
type Summary struct {
	Items []types.CartItem `json:"items"`
	Count int              `json:"count"`
	Total types.Money      `json:"total"`
}

// Summary returns a consistent snapshot of the cart
func (c *Cart) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{Items: slices.Clone(c.items)}
	if s.Items == nil {
		s.Items = []types.CartItem{}
	}
	for _, i := range c.items {
		s.Count += i.Quantity
		s.Total += i.Subtotal()
	}
	return s
}

func (c *Cart) lastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}
