package store

import (
	"context"
	"sync"
	"time"

	"bookcourier/internal/models"
)

// MemoryStore keeps sessions in process. Used when DATABASE_URL is unset.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionRecord
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.SessionRecord), now: time.Now}
}

func (m *MemoryStore) CreateSession(ctx context.Context, rec *models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.sessions[rec.ID] = *rec
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*models.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok || rec.Expired(m.now()) {
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) UpdateSession(ctx context.Context, rec *models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[rec.ID]
	if !ok {
		return ErrSessionNotFound
	}
	cur.DisplayName = rec.DisplayName
	cur.PhotoURL = rec.PhotoURL
	cur.IDToken = rec.IDToken
	cur.RefreshToken = rec.RefreshToken
	cur.TokenExpiry = rec.TokenExpiry
	m.sessions[rec.ID] = cur
	return nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.sessions {
		if rec.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
