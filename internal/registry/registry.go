// Package registry holds the live terminal sessions keyed by session ID.
//
// Insert is an atomic insert-if-absent and is the only guard against two
// concurrent creates for the same pod both spawning a subprocess. Lookups take
// a read lock and may run concurrently; inserts and removals are serialized.
package registry

import (
	"sort"
	"sync"

	"github.com/GriffinCanCode/podshell/internal/shared/id"
)

// Registry maps session IDs to session values
type Registry[V comparable] struct {
	mu      sync.RWMutex
	entries map[id.SessionID]V
}

// New creates an empty registry
func New[V comparable]() *Registry[V] {
	return &Registry[V]{
		entries: make(map[id.SessionID]V),
	}
}

// Insert stores v under sid unless an entry already exists.
// It reports whether v was stored.
func (r *Registry[V]) Insert(sid id.SessionID, v V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[sid]; exists {
		return false
	}
	r.entries[sid] = v
	return true
}

// Get returns the entry for sid
func (r *Registry[V]) Get(sid id.SessionID) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[sid]
	return v, ok
}

// Remove deletes the entry for sid. Removing an absent ID is a no-op.
func (r *Registry[V]) Remove(sid id.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, sid)
}

// RemoveIf deletes the entry for sid only if it is v, so a stale owner
// never evicts a successor. It reports whether an entry was removed.
func (r *Registry[V]) RemoveIf(sid id.SessionID, v V) bool {
	return r.RemoveIfThen(sid, v, nil)
}

// RemoveIfThen is RemoveIf that also runs fn under the write lock when the
// entry is removed. An Insert for the same ID cannot interleave with fn, so
// anything fn publishes is ordered before the successor exists. fn must not
// call back into the registry.
func (r *Registry[V]) RemoveIfThen(sid id.SessionID, v V, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[sid]
	if !ok || cur != v {
		return false
	}
	delete(r.entries, sid)
	if fn != nil {
		fn()
	}
	return true
}

// List returns all entries ordered by session ID
func (r *Registry[V]) List() []V {
	r.mu.RLock()
	ids := make([]id.SessionID, 0, len(r.entries))
	for sid := range r.entries {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]V, 0, len(ids))
	for _, sid := range ids {
		out = append(out, r.entries[sid])
	}
	r.mu.RUnlock()
	return out
}

// Len returns the number of entries
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
