package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"sync"
)

var ErrAlreadyStarted = errors.New("playback handle already started")

// Player opens playable handles for a payload URL.
type Player interface {
	Open(url string) (Handle, error)
}

// Handle is one audio element. Seek and SetVolume apply to the next Start.
// onEnded fires only when playback reaches the end on its own, never after
// Stop.
type Handle interface {
	Seek(offset float64)
	SetVolume(v float64)
	Start(onEnded func()) error
	Stop()
}

// FFplay plays handles through the ffplay binary with no video window.
type FFplay struct {
	path   string
	logger *slog.Logger
}

func NewFFplay(path string, logger *slog.Logger) *FFplay {
	if path == "" {
		path = FFplayTool
	}
	return &FFplay{path: path, logger: logger}
}

func (p *FFplay) Open(url string) (Handle, error) {
	if url == "" {
		return nil, fmt.Errorf("ffplay: empty url")
	}
	return &ffplayHandle{player: p, url: url, volume: 1}, nil
}

type ffplayHandle struct {
	player *FFplay
	url    string

	mu      sync.Mutex
	offset  float64
	volume  float64
	cancel  context.CancelFunc
	stopped bool
}

func (h *ffplayHandle) Seek(offset float64) {
	h.mu.Lock()
	h.offset = math.Max(0, offset)
	h.mu.Unlock()
}

func (h *ffplayHandle) SetVolume(v float64) {
	h.mu.Lock()
	h.volume = math.Max(0, math.Min(1, v))
	h.mu.Unlock()
}

// Args returns the ffplay arguments for the current offset and volume.
func (h *ffplayHandle) Args() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		"-ss", Seconds(h.offset),
		"-volume", fmt.Sprintf("%d", int(math.Round(h.volume*100))),
		h.url,
	}
}

func (h *ffplayHandle) Start(onEnded func()) error {
	args := h.Args()

	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.stopped = false
	h.mu.Unlock()

	cmd := exec.CommandContext(ctx, h.player.path, args...)
	if err := cmd.Start(); err != nil {
		h.mu.Lock()
		h.cancel = nil
		h.mu.Unlock()
		cancel()
		return fmt.Errorf("start ffplay: %w", err)
	}

	go func() {
		err := cmd.Wait()

		h.mu.Lock()
		stopped := h.stopped
		h.cancel = nil
		h.mu.Unlock()
		cancel()

		if stopped {
			return
		}
		if err != nil {
			h.player.logger.Warn("ffplay exited with error", "error", err)
		}
		if onEnded != nil {
			onEnded()
		}
	}()
	return nil
}

func (h *ffplayHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel == nil {
		return
	}
	h.stopped = true
	h.cancel()
}
