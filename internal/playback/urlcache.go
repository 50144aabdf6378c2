package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angle-app/angle/internal/timeline"
)

// URLCache materializes clip payloads as files so external players can open
// them. A path whose file disappeared is regenerated on the next request.
type URLCache struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]string
}

func NewURLCache(dir string, logger *slog.Logger) (*URLCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create playback cache dir: %w", err)
	}
	return &URLCache{dir: dir, logger: logger, entries: make(map[string]string)}, nil
}

func (c *URLCache) URL(clip timeline.AudioClip) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.entries[clip.ID]; ok {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		c.logger.Debug("regenerating playback file", "clip_id", clip.ID)
	}

	if len(clip.Source) == 0 {
		return "", fmt.Errorf("clip %s has no payload", clip.ID)
	}

	p := filepath.Join(c.dir, fmt.Sprintf("%s-%s.webm", safeID(clip.ID), uuid.NewString()[:8]))
	if err := os.WriteFile(p, clip.Source, 0600); err != nil {
		return "", fmt.Errorf("write playback file: %w", err)
	}
	c.entries[clip.ID] = p
	return p, nil
}

func (c *URLCache) Release(clipID string) {
	c.mu.Lock()
	p, ok := c.entries[clipID]
	delete(c.entries, clipID)
	c.mu.Unlock()

	if ok {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove playback file", "clip_id", clipID, "error", err)
		}
	}
}

func (c *URLCache) Close() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.Release(id)
	}
}

func safeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
