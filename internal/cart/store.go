package cart

import (
	"sync"
	"time"
)

type entry struct {
	mu       sync.Mutex
	cart     *Cart
	lastSeen time.Time
	gone     bool
}

// Store holds one cart per session. Mutations of the same session run one at a time.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry), now: time.Now}
}

// Open creates the session cart if it does not exist yet
func (s *Store) Open(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked(sessionID)
}

func (s *Store) openLocked(sessionID string) *entry {
	e, ok := s.entries[sessionID]
	if !ok {
		e = &entry{cart: New(), lastSeen: s.now()}
		s.entries[sessionID] = e
	}
	return e
}

// With runs fn against the session cart while holding its lock.
// The cart is created on first use.
func (s *Store) With(sessionID string, fn func(c *Cart) error) error {
	for {
		s.mu.Lock()
		e := s.openLocked(sessionID)
		s.mu.Unlock()

		e.mu.Lock()
		if e.gone {
			// discarded between lookup and lock, take the fresh one
			e.mu.Unlock()
			continue
		}
		e.lastSeen = s.now()
		err := fn(e.cart)
		e.mu.Unlock()
		return err
	}
}

// Snapshot returns a copy of the session cart lines
func (s *Store) Snapshot(sessionID string) []Item {
	var items []Item
	_ = s.With(sessionID, func(c *Cart) error {
		items = c.Items()
		return nil
	})
	return items
}

// Discard tears the session cart down
func (s *Store) Discard(sessionID string) {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	delete(s.entries, sessionID)
	s.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.gone = true
		e.mu.Unlock()
	}
}

// EvictIdle drops carts not touched within ttl and returns how many were removed
func (s *Store) EvictIdle(ttl time.Duration) int {
	deadline := s.now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastSeen.Before(deadline) {
			e.gone = true
			delete(s.entries, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// Len number of open carts
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
