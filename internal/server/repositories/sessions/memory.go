package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/casupload/internal/common"
)

// InMemoryRepository is used when no database DSN is configured. Sessions do
// not survive a restart.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]Session)}
}

func (r *InMemoryRepository) Create(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.UploadID]; ok {
		return ErrDuplicateSession
	}
	r.sessions[s.UploadID] = *s
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, uploadID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[uploadID]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return &s, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[uploadID]; !ok {
		return common.ErrSessionNotFound
	}
	delete(r.sessions, uploadID)
	return nil
}

func (r *InMemoryRepository) ListStale(ctx context.Context, before time.Time) ([]*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Session
	for _, s := range r.sessions {
		if s.CreatedAt.Before(before) {
			s := s
			result = append(result, &s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *InMemoryRepository) IsReady(ctx context.Context) error { return nil }
