package review

import (
	"context"
	"sort"
	"sync"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ReviewStore for unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews map[id.ProofReviewID]*models.ProofReview
}

// NewMemory creates an empty in-memory review store.
func NewMemory() *MemoryStore {
	return &MemoryStore{reviews: make(map[id.ProofReviewID]*models.ProofReview)}
}

func (s *MemoryStore) Save(_ context.Context, review *models.ProofReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *review
	s.reviews[review.ID] = &cp
	return nil
}

func (s *MemoryStore) FindCurrentRejection(_ context.Context, appID id.ApplicationID, t models.ProofType) (*models.ProofReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.ApplicationID == appID && r.ProofType == t && r.Decision == models.ReviewRejected {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]*models.ProofReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ProofReview
	for _, r := range s.reviews {
		if r.ApplicationID == appID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReviewedAt.Before(out[j].ReviewedAt)
	})
	return out, nil
}
