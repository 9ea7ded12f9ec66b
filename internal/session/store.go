// Package session owns durable conversation state and the turn-handling
// logic that decides when a message triggers a pipeline run.
package session

import (
	"context"
	"errors"
	"sync"

	"study-advisor/internal/models"
)

// ErrNotFound is returned by Load when no session exists for the id.
var ErrNotFound = errors.New("session not found")

// Store persists sessions. Save must be atomic per session: readers see
// either the previous state or the fully committed new one.
type Store interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
}

// MemoryStore is the in-process store used by tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*models.Session{}}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}
