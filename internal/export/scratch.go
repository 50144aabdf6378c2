package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Scratch tracks the temporary files of one export. Cleanup removes every
// tracked file and is safe to call more than once.
type Scratch struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	paths []string
}

func NewScratch(dir string, logger *slog.Logger) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Scratch{dir: dir, logger: logger}, nil
}

// Path allocates and tracks a new unique file name. The file is not created.
func (s *Scratch) Path(prefix, ext string) string {
	p := filepath.Join(s.dir, fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext))
	s.Track(p)
	return p
}

func (s *Scratch) Track(path string) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
}

func (s *Scratch) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *Scratch) Cleanup() {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			s.logger.Debug("removed temp file", "file", filepath.Base(p))
		case errors.Is(err, os.ErrNotExist):
		default:
			s.logger.Warn("failed to remove temp file", "file", filepath.Base(p), "error", err)
		}
	}
}
