package timeline

import (
	"context"
	"log/slog"
	"sync"
)

// Manager hands out one Session per project, loading clips from the store on
// first use.
type Manager struct {
	store  ClipStore
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(store ClipStore, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Get(ctx context.Context, projectID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[projectID]; ok {
		return s, nil
	}

	s := NewSession(projectID, m.store)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	m.sessions[projectID] = s
	m.logger.Debug("session opened", "project_id", projectID, "clips", len(s.Clips()))
	return s, nil
}

// Drop forgets a project's session. Persisted clips are left alone.
func (m *Manager) Drop(projectID string) {
	m.mu.Lock()
	delete(m.sessions, projectID)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
