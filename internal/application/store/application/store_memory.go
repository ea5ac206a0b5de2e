package application

import (
	"context"
	"sort"
	"sync"

	"vouchsafe/internal/application/models"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/platform/sentinel"
)

// MemoryStore is an in-memory ApplicationStore for unit tests and local
// development. It favors clarity over performance.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

// NewMemory creates an empty in-memory application store.
func NewMemory() *MemoryStore {
	return &MemoryStore{apps: make(map[id.ApplicationID]*models.Application)}
}

func (s *MemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(app), nil
}

func (s *MemoryStore) FindBySigningSubmissionID(_ context.Context, submissionID string) (*models.Application, error) {
	if submissionID == "" {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if app.SigningSubmissionID == submissionID {
			return clone(app), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.apps[app.ID] = clone(app)
	return nil
}

// Execute runs validate and mutate under the store mutex, mirroring the row
// lock the PostgreSQL store takes.
func (s *MemoryStore) Execute(_ context.Context, appID id.ApplicationID,
	validate func(app *models.Application) error,
	mutate func(app *models.Application)) (*models.Application, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := clone(app)
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(working)
	}
	s.apps[appID] = clone(working)
	return working, nil
}

func (s *MemoryStore) LatestByUser(_ context.Context, userID id.UserID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.Application
	for _, app := range s.apps {
		if app.UserID != userID {
			continue
		}
		if latest == nil || app.ApplicationDate.After(latest.ApplicationDate) {
			latest = app
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(latest), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, app := range s.apps {
		if app.UserID == userID {
			out = append(out, clone(app))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ApplicationDate.After(out[j].ApplicationDate)
	})
	return out, nil
}

func clone(app *models.Application) *models.Application {
	cp := *app
	return &cp
}
