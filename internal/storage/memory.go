package storage

import (
	"context"
	"sync"

	"vouchsafe/pkg/platform/sentinel"
)

// MemoryStore is an in-memory BlobStore for unit tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemory creates an empty in-memory blob store.
func NewMemory() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

func (s *MemoryStore) Put(_ context.Context, blob Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make([]byte, len(blob.Data))
	copy(data, blob.Data)
	blob.Data = data
	s.blobs[blob.Key] = blob
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	data := make([]byte, len(blob.Data))
	copy(data, blob.Data)
	blob.Data = data
	return &blob, nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *MemoryStore) Purge(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Len reports the number of stored blobs. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
