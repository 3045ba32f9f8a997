package registry

import (
	"log/slog"
	"sort"
	"sync"
)

// Member is anything the registry can hold. ID is used for logging only;
// identity is the value itself.
type Member interface {
	comparable
	ID() string
}

// Registry is a mutex-protected set of members.
type Registry[M Member] struct {
	mu      sync.Mutex
	members map[M]uint64 // value: registration sequence
	seq     uint64
}

// New returns an empty Registry.
func New[M Member]() *Registry[M] {
	return &Registry[M]{members: make(map[M]uint64)}
}

// Add inserts m. Adding a member twice keeps one entry and moves it to the
// end of the snapshot order.
func (r *Registry[M]) Add(m M) {
	r.mu.Lock()
	r.seq++
	r.members[m] = r.seq
	n := len(r.members)
	r.mu.Unlock()

	slog.Info("registry: client connected", "client", m.ID(), "total", n)
}

// Remove deletes m and reports whether it was present. Removing an absent
// member is a no-op and is not logged.
func (r *Registry[M]) Remove(m M) bool {
	r.mu.Lock()
	_, ok := r.members[m]
	if ok {
		delete(r.members, m)
	}
	n := len(r.members)
	r.mu.Unlock()

	if ok {
		slog.Info("registry: client disconnected", "client", m.ID(), "total", n)
	}
	return ok
}

// Contains reports whether m is registered.
func (r *Registry[M]) Contains(m M) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[m]
	return ok
}

// Snapshot returns the current members in registration order. The slice is
// owned by the caller.
func (r *Registry[M]) Snapshot() []M {
	type entry struct {
		m   M
		seq uint64
	}
	r.mu.Lock()
	entries := make([]entry, 0, len(r.members))
	for m, seq := range r.members {
		entries = append(entries, entry{m, seq})
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]M, len(entries))
	for i, e := range entries {
		out[i] = e.m
	}
	return out
}

// Count returns the number of registered members.
func (r *Registry[M]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
