package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockpulse/pkg/contracts/domain"
)

// MemoryStore keeps datasets in process memory. Stored data is shared with
// readers and must be treated as read-only.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]*domain.Dataset
	active   map[domain.Category]string
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		datasets: make(map[string]*domain.Dataset),
		active:   make(map[domain.Category]string),
		now:      time.Now,
	}
}

// Save implements Store
func (s *MemoryStore) Save(ctx context.Context, raw domain.RawFile, processed *domain.ResultData, category domain.Category) (string, error) {
	if processed == nil {
		return "", ErrInvalidDataset
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("failed to save dataset: %w", err)
	}

	meta := newMeta(uuid.NewString(), raw, processed, category)

	s.mu.Lock()
	defer s.mu.Unlock()

	meta.CreatedAt = s.now().UTC()
	if prev, ok := s.active[category]; ok {
		s.datasets[prev].Active = false
	}
	s.datasets[meta.ID] = &domain.Dataset{DatasetMeta: meta, Data: processed}
	s.active[category] = meta.ID
	return meta.ID, nil
}

// GetActive implements Store
func (s *MemoryStore) GetActive(ctx context.Context, category domain.Category) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[category]
	if !ok {
		return nil, ErrNotFound
	}
	ds := *s.datasets[id]
	return &ds, nil
}

// ListHistory implements Store
func (s *MemoryStore) ListHistory(ctx context.Context, category domain.Category) ([]domain.DatasetMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := []domain.DatasetMeta{}
	for _, ds := range s.datasets {
		if ds.Category == category {
			history = append(history, ds.DatasetMeta)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		if history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].Active
		}
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *ds
	return &c, nil
}

// Ping implements Store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements Store
func (s *MemoryStore) Close() {}
