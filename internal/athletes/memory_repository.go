package athletes

import (
	"context"
	"sync"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/apperrors"
	"github.com/harry-lons/runsum-be-nonorg/internal/models"
)

// MemoryRepository is an in-process Repository used for local runs without a
// database and in tests. Records are copied in and out so callers never share state.
type MemoryRepository struct {
	mu      sync.RWMutex
	store   map[int64]models.Athlete
	queries []models.QueryLog
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[int64]models.Athlete), now: time.Now}
}

func (m *MemoryRepository) Upsert(ctx context.Context, a *models.Athlete) (*models.Athlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	rec := *a
	if prev, ok := m.store[a.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.store[a.ID] = rec
	out := rec
	return &out, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int64) (*models.Athlete, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[id]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, nil, "athlete %d", id)
	}
	return &rec, nil
}

func (m *MemoryRepository) UpdateTokens(ctx context.Context, id int64, prevExpiresAt time.Time, next models.TokenSet) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[id]
	if !ok {
		return false, apperrors.Wrapf(apperrors.ErrNotFound, nil, "athlete %d", id)
	}
	if !rec.ExpiresAt.Equal(prevExpiresAt) {
		return false, nil
	}
	rec.AccessToken = next.AccessToken
	rec.RefreshToken = next.RefreshToken
	rec.ExpiresAt = next.ExpiresAt
	rec.UpdatedAt = m.now().UTC()
	m.store[id] = rec
	return true, nil
}

func (m *MemoryRepository) LogQuery(ctx context.Context, q models.QueryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return nil
}

// Queries returns a copy of the audit rows appended so far.
func (m *MemoryRepository) Queries() []models.QueryLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.QueryLog(nil), m.queries...)
}

// Len returns the number of stored athletes.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
