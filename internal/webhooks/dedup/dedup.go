// Package dedup remembers webhook deliveries so replays are recognized even
// when the aggregate's own state cannot distinguish a duplicate (e.g. a
// repeated terminal fax callback). Entries expire; the aggregate state is the
// durable guard, the ledger is the fast path.
package dedup

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long a delivery is remembered. Providers retry
// webhooks for at most a few days.
const DefaultTTL = 72 * time.Hour

// Ledger records processed webhook deliveries.
type Ledger interface {
	// MarkProcessed records a delivery key. Returns true when the key was
	// newly recorded, false when it had already been seen.
	MarkProcessed(ctx context.Context, key string) (bool, error)
	// Seen reports whether the key was already recorded.
	Seen(ctx context.Context, key string) (bool, error)
}

// Memory is an in-process ledger for unit tests and single-node deployments.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
}

// NewMemory creates an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time), ttl: DefaultTTL}
}

func (m *Memory) MarkProcessed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()
	if _, seen := m.entries[key]; seen {
		return false, nil
	}
	m.entries[key] = time.Now().Add(m.ttl)
	return true, nil
}

func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()
	_, seen := m.entries[key]
	return seen, nil
}

func (m *Memory) expire() {
	now := time.Now()
	for key, deadline := range m.entries {
		if now.After(deadline) {
			delete(m.entries, key)
		}
	}
}
