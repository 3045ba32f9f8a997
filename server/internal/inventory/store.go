package inventory

import (
	"sync"
	"time"

	"github.com/switchwatch/switchwatch/pkg/types"
)

// Entry is a switch together with the time it was last written.
type Entry struct {
	Entity    types.MonitoredEntity
	UpdatedAt time.Time
}

// Store is a thread-safe switch table keyed by entity ID. List preserves the
// order in which IDs were first added.
type Store struct {
	mu    sync.RWMutex
	data  map[string]*Entry
	order []string
	now   func() time.Time // injectable for deterministic tests
}

// NewStore returns a Store holding entities in the given order.
func NewStore(entities ...types.MonitoredEntity) *Store {
	s := &Store{
		data: make(map[string]*Entry),
		now:  time.Now,
	}
	for _, e := range entities {
		s.Put(e)
	}
	return s
}

// Put stores or replaces the entity with e.ID. A replaced entity keeps its
// position.
func (s *Store) Put(e types.MonitoredEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(e)
}

func (s *Store) putLocked(e types.MonitoredEntity) {
	if _, ok := s.data[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.data[e.ID] = &Entry{Entity: e, UpdatedAt: s.now()}
}

// Get returns the entry for id and whether it exists.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns every entity in insertion order.
func (s *Store) List() []types.MonitoredEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.MonitoredEntity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Entity)
	}
	return out
}

// Replace swaps the whole table for entities, in their given order. It is
// used when the inventory section of the config is reloaded.
func (s *Store) Replace(entities []types.MonitoredEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*Entry, len(entities))
	s.order = s.order[:0]
	for _, e := range entities {
		s.putLocked(e)
	}
}

// Count returns the number of switches held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
