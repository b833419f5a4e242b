package order

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// InFlight allows one outstanding submission per key.
// Each key keeps its own weight-1 semaphore for the life of the guard.
type InFlight struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewInFlight() *InFlight {
	return &InFlight{sems: make(map[string]*semaphore.Weighted)}
}

func (g *InFlight) sem(key string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, found := g.sems[key]
	if !found {
		sem = semaphore.NewWeighted(1)
		g.sems[key] = sem
	}
	return sem
}

// TryAcquire marks key as busy. The returned release may be called more than once.
func (g *InFlight) TryAcquire(key string) (release func(), ok bool) {
	sem := g.sem(key)
	if !sem.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}, true
}

// Busy reports whether key has a submission outstanding
func (g *InFlight) Busy(key string) bool {
	sem := g.sem(key)
	if sem.TryAcquire(1) {
		sem.Release(1)
		return false
	}
	return true
}
