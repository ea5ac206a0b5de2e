package guardian

import (
	"context"
	"sync"

	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
)

type linkKey struct {
	guardian  id.UserID
	dependent id.UserID
}

// MemoryStore is an in-memory guardian link store for unit tests.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[linkKey]*Link
}

// NewMemory creates an empty in-memory guardian link store.
func NewMemory() *MemoryStore {
	return &MemoryStore{links: make(map[linkKey]*Link)}
}

func (s *MemoryStore) Create(_ context.Context, link *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey{guardian: link.GuardianID, dependent: link.DependentID}
	if _, exists := s.links[key]; exists {
		return sentinel.ErrConflict
	}
	c := *link
	s.links[key] = &c
	return nil
}

func (s *MemoryStore) Find(_ context.Context, guardianID, dependentID id.UserID) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[linkKey{guardian: guardianID, dependent: dependentID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *link
	return &c, nil
}

func (s *MemoryStore) Delete(_ context.Context, guardianID, dependentID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey{guardian: guardianID, dependent: dependentID}
	if _, ok := s.links[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.links, key)
	return nil
}

func (s *MemoryStore) ListByGuardian(_ context.Context, guardianID id.UserID) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Link
	for key, link := range s.links {
		if key.guardian == guardianID {
			c := *link
			out = append(out, &c)
		}
	}
	return out, nil
}
