package cart

import (
	"sync"
	"time"
)

// Registry keeps one cart per session id
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
	now   func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart), now: time.Now}
}

// Get returns the session's cart, creating it on first use
func (r *Registry) Get(session string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[session]
	if !ok {
		c = newCart(r.now)
		r.carts[session] = c
	}
	return c
}

// Lookup returns the session's cart without creating one
func (r *Registry) Lookup(session string) (*Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[session]
	return c, ok
}

// Delete drops the session's cart
func (r *Registry) Delete(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, session)
}

// Len returns the number of carts held
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// EvictIdle drops carts untouched for longer than ttl and returns how many
// were removed
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.carts {
		if c.lastTouched().Before(cutoff) {
			delete(r.carts, id)
			removed++
		}
	}
	return removed
}
