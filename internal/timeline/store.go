package timeline

import (
	"context"
	"sync"
)

// ClipStore persists a project's audio clips. Backends decide how the
// payload bytes are encoded.
type ClipStore interface {
	Save(ctx context.Context, projectID string, clips []AudioClip) error
	Load(ctx context.Context, projectID string) ([]AudioClip, error)
}

type MemoryClipStore struct {
	mu    sync.RWMutex
	clips map[string][]AudioClip
}

func NewMemoryClipStore() *MemoryClipStore {
	return &MemoryClipStore{clips: make(map[string][]AudioClip)}
}

func (s *MemoryClipStore) Save(ctx context.Context, projectID string, clips []AudioClip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[projectID] = CloneClips(clips)
	return nil
}

func (s *MemoryClipStore) Load(ctx context.Context, projectID string) ([]AudioClip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneClips(s.clips[projectID]), nil
}
