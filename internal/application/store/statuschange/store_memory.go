package statuschange

import (
	"context"
	"sync"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
)

// MemoryStore is an in-memory append-only StatusChangeStore for unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	changes []*models.StatusChange
}

// NewMemory creates an empty in-memory status change store.
func NewMemory() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, change *models.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *change
	cp.ID = s.nextID
	s.nextID++
	s.changes = append(s.changes, &cp)
	change.ID = cp.ID
	return nil
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]*models.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.StatusChange
	for _, c := range s.changes {
		if c.ApplicationID == appID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
