package guard

import (
	"context"
	"sync"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/jonboulle/clockwork"
)

// IdempotencyGuard deduplicates requests by idempotency key. Keys are
// forgotten after ttl.
type IdempotencyGuard struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	ttl   time.Duration
	clock clockwork.Clock
}

// NewIdempotencyGuard creates a new in-memory idempotency guard.
func NewIdempotencyGuard(ttl time.Duration, opts ...Option) *IdempotencyGuard {
	o := buildOptions(opts)
	return &IdempotencyGuard{
		seen:  make(map[string]time.Time),
		ttl:   ttl,
		clock: o.clock,
	}
}

// Check returns whether the given key has already been processed.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.clock.Now()
	ig.evict(now)

	if _, ok := ig.seen[key]; ok {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = now
	return domain.GuardResult{Allowed: true}
}

// Remove deletes a key from the seen set (for retry scenarios).
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

func (ig *IdempotencyGuard) evict(now time.Time) {
	if ig.ttl <= 0 {
		return
	}
	for k, at := range ig.seen {
		if now.Sub(at) >= ig.ttl {
			delete(ig.seen, k)
		}
	}
}
