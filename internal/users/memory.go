package users

import (
	"context"
	"sync"
	"time"

	"github.com/haasonsaas/concierge/pkg/models"
)

// MemoryStore provides an in-memory Store implementation for testing and
// local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byPhone map[string]*models.UserRecord
}

// NewMemoryStore creates a new in-memory user record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byPhone: make(map[string]*models.UserRecord)}
}

func (m *MemoryStore) FindByPhone(ctx context.Context, phone string) (*models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *MemoryStore) Create(ctx context.Context, rec *models.UserRecord) error {
	if rec == nil || rec.Phone == "" {
		return ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byPhone[rec.Phone]; exists {
		return ErrExists
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	clone := *rec
	m.byPhone[rec.Phone] = &clone
	return nil
}

func (m *MemoryStore) UpdateByPhone(ctx context.Context, phone string, patch models.UserPatch) (*models.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(rec)
	rec.UpdatedAt = time.Now()
	clone := *rec
	return &clone, nil
}
