package replay

import (
	"context"
	"sync"
	"time"

	"marketplace-integration-layer/internal/ports"
)

// MemoryGuard is a process-local ReplayGuard for development and tests
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryGuard creates an in-memory replay guard
func NewMemoryGuard() ports.ReplayGuard {
	return newMemoryGuard(time.Now)
}

func newMemoryGuard(now func() time.Time) *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]time.Time), now: now}
}

// Remember returns true when key was not seen within ttl
func (g *MemoryGuard) Remember(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}
