package twilio

import (
	"context"
	"sync"

	"vouchsafe/pkg/platform/sentinel"
)

// Store persists fax transmissions keyed by the provider SID.
type Store interface {
	Create(ctx context.Context, fax *FaxTransmission) error
	FindBySid(ctx context.Context, faxSid string) (*FaxTransmission, error)
	Update(ctx context.Context, fax *FaxTransmission) error
}

// MemoryStore is an in-memory fax store for unit tests.
type MemoryStore struct {
	mu    sync.RWMutex
	faxes map[string]*FaxTransmission
}

// NewMemory creates an empty in-memory fax store.
func NewMemory() *MemoryStore {
	return &MemoryStore{faxes: make(map[string]*FaxTransmission)}
}

func (s *MemoryStore) Create(_ context.Context, fax *FaxTransmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.faxes[fax.FaxSid]; exists {
		return sentinel.ErrConflict
	}
	c := *fax
	s.faxes[fax.FaxSid] = &c
	return nil
}

func (s *MemoryStore) FindBySid(_ context.Context, faxSid string) (*FaxTransmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fax, ok := s.faxes[faxSid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *fax
	return &c, nil
}

func (s *MemoryStore) Update(_ context.Context, fax *FaxTransmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.faxes[fax.FaxSid]; !ok {
		return sentinel.ErrNotFound
	}
	c := *fax
	s.faxes[fax.FaxSid] = &c
	return nil
}
