// Package registry provides the insertion-ordered store of tracking entries.
package registry

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/vctrack/internal/domain/entry"
)

var ErrEntryNotFound = errors.New("entry not found")

// EntryRegistry keeps one entry per user in the order users first appeared.
// It is not safe for concurrent use; the session manager serialises access.
type EntryRegistry struct {
	order   []string
	entries map[string]*entry.Entry
}

// NewEntryRegistry creates an empty registry.
func NewEntryRegistry() *EntryRegistry {
	return &EntryRegistry{
		entries: make(map[string]*entry.Entry),
	}
}

// Put stores e under its user ID. Replacing an existing entry keeps its position.
func (r *EntryRegistry) Put(e *entry.Entry) {
	if _, ok := r.entries[e.UserID]; !ok {
		r.order = append(r.order, e.UserID)
	}
	r.entries[e.UserID] = e
}

// Get retrieves the entry of a user.
func (r *EntryRegistry) Get(userID string) (*entry.Entry, error) {
	e, ok := r.entries[userID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return e, nil
}

// Snapshot returns copies of all entries in insertion order.
func (r *EntryRegistry) Snapshot() []*entry.Entry {
	result := make([]*entry.Entry, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.entries[id].Clone())
	}
	return result
}

// Len returns the number of entries.
func (r *EntryRegistry) Len() int {
	return len(r.order)
}

// OpenCount returns the number of entries currently accruing time.
func (r *EntryRegistry) OpenCount() int {
	n := 0
	for _, e := range r.entries {
		if e.IsOpen() {
			n++
		}
	}
	return n
}

// Reset drops every entry.
func (r *EntryRegistry) Reset() {
	r.order = nil
	r.entries = make(map[string]*entry.Entry)
}
