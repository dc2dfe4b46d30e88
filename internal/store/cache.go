// Package store holds the client-side entity caches for companies, users,
// and contact inquiries.
//
// Each cache mirrors one server-side collection: an ordered item list (server
// response order, never re-sorted on write), an independent selected record,
// and named views with their own loaded flags and pagination metadata. Writes
// apply only after the server confirms success, replacing by id; there is no
// optimistic pre-write, so a failed call leaves the cache exactly as it was.
//
// Two concurrent updates against the same id race with last-response-wins
// semantics. This is an accepted limitation, not a bug to paper over: the
// caches exist to mirror the server, and the server's final state wins on the
// next fetch either way.
package store

import (
	"sync"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/authz"
)

// Entity is anything cacheable by id.
type Entity interface {
	EntityID() string
}

// RoleSource exposes the current identity's role for the client-side
// admin-gate mirror. Implemented by the session manager.
type RoleSource interface {
	Role() authz.Role
}

// View tracks one named, independently-loaded slice of a cache's query
// space.
type View struct {
	Loaded bool
	Meta   *api.Meta
}

// Guaranteed view keys. Other keys (e.g. "filtered:<hash>") are created on
// demand.
const (
	ViewAll      = "all"
	ViewMine     = "mine"
	ViewPremium  = "premium"
	ViewVerified = "verified"
	ViewTopRated = "topRated"
	ViewBlocked  = "blocked"
	ViewSearch   = "search"
)

// cache is the generic core shared by the three stores.
type cache[T Entity] struct {
	mu       sync.Mutex
	items    []T
	selected *T
	views    map[string]View
	loading  bool
	err      string
}

func newCache[T Entity]() *cache[T] {
	return &cache[T]{
		views: map[string]View{
			ViewAll:  {},
			ViewMine: {},
		},
	}
}

// Items returns a copy of the item list in server order.
func (c *cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Selected returns a copy of the detail-view record, or nil.
func (c *cache[T]) Selected() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	copied := *c.selected
	return &copied
}

// ViewState returns the named view's state. Unknown keys return a zero View.
func (c *cache[T]) ViewState(key string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.views[key]
}

// Loading reports whether an operation is in flight.
func (c *cache[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last operation's error message, "" when clear.
func (c *cache[T]) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reset returns the cache to its empty initial state: no items, no
// selection, every view unloaded, no error. Called on logout so the next
// identity never observes the previous identity's data.
func (c *cache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.selected = nil
	c.views = map[string]View{
		ViewAll:  {},
		ViewMine: {},
	}
	c.loading = false
	c.err = ""
}

// begin clears the error and raises the loading flag. Every operation calls
// it on entry.
func (c *cache[T]) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = ""
	c.loading = true
}

// fail records the failure message and drops the loading flag. Prior cache
// state stays untouched.
func (c *cache[T]) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.err = msg
}

// setList installs a fetched list into items and marks the view loaded.
func (c *cache[T]) setList(viewKey string, items []T, meta *api.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.items = items
	c.views[viewKey] = View{Loaded: true, Meta: meta}
}

// setSelected installs a fetched detail record.
func (c *cache[T]) setSelected(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.selected = &item
}

// confirmCreate appends a server-confirmed record. Replaces instead when the
// id is already present, preserving the at-most-once invariant.
func (c *cache[T]) confirmCreate(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	for i := range c.items {
		if c.items[i].EntityID() == item.EntityID() {
			c.items[i] = item
			return
		}
	}
	c.items = append(c.items, item)
}

// confirmUpdate replaces the record by id everywhere it appears: the item
// list and the selection. Records never mutate in place and never
// duplicate.
func (c *cache[T]) confirmUpdate(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	for i := range c.items {
		if c.items[i].EntityID() == item.EntityID() {
			c.items[i] = item
			break
		}
	}
	if c.selected != nil && (*c.selected).EntityID() == item.EntityID() {
		c.selected = &item
	}
}

// confirmRemove drops the record by id from the list and the selection.
func (c *cache[T]) confirmRemove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	kept := c.items[:0]
	for _, item := range c.items {
		if item.EntityID() != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	if c.selected != nil && (*c.selected).EntityID() == id {
		c.selected = nil
	}
}
