package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sifan077/curto/internal/app/model"
)

// MemoryStore keeps links in a map. It is used by tests and by the
// "memory" store driver for local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]model.Link
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[string]model.Link),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for timestamps.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, id, targetURL string) (*model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[id]; exists {
		return nil, ErrDuplicateID
	}

	now := s.now()
	link := model.Link{
		ID:        id,
		TargetURL: targetURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.links[id] = link
	return &link, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	link, exists := s.links[id]
	if !exists {
		return nil, ErrLinkNotFound
	}
	return &link, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	links := make([]model.Link, 0, len(s.links))
	for _, link := range s.links {
		links = append(links, link)
	}
	s.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID < links[j].ID
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links, nil
}

func (s *MemoryStore) IncrementRedirectCount(ctx context.Context, id string) (*model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, exists := s.links[id]
	if !exists {
		return nil, ErrLinkNotFound
	}
	link.CountRedirects++
	link.UpdatedAt = s.now()
	s.links[id] = link
	return &link, nil
}
