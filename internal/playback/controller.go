// Package playback keeps audio overlay clips in step with the primary video
// and serves clip payloads to players.
package playback

import (
	"log/slog"
	"math"
	"sync"

	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/timeline"
)

type ClipState int

const (
	Idle ClipState = iota
	Playing
)

func (s ClipState) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// Video is the primary video element the controller follows.
type Video interface {
	CurrentTime() float64
	Paused() bool
	Volume() float64
	Muted() bool
	Seek(sec float64)
	Pause()
	Play()
}

// URLSource returns a playable URL for a clip's payload, regenerating it if
// the previous one is gone.
type URLSource interface {
	URL(clip timeline.AudioClip) (string, error)
	Release(clipID string)
}

type activeClip struct {
	handle media.Handle
	gen    uint64
}

// Controller drives one audio handle per clip from video time updates. All
// handlers are idempotent and may be called repeatedly for the same tick.
//
// Handles must invoke their end callback asynchronously, never from Start.
type Controller struct {
	video  Video
	player media.Player
	urls   URLSource
	logger *slog.Logger

	mu       sync.Mutex
	trim     timeline.VideoTrim
	looping  bool
	clips    []timeline.AudioClip
	active   map[string]activeClip
	finished map[string]bool
	gen      uint64
}

func NewController(video Video, player media.Player, urls URLSource, logger *slog.Logger) *Controller {
	return &Controller{
		video:    video,
		player:   player,
		urls:     urls,
		logger:   logger,
		active:   make(map[string]activeClip),
		finished: make(map[string]bool),
	}
}

// SetClips replaces the clip list. Handles of clips that were removed or
// moved are stopped.
func (c *Controller) SetClips(clips []timeline.AudioClip) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]timeline.AudioClip, len(clips))
	for _, clip := range clips {
		next[clip.ID] = clip
	}
	for _, old := range c.clips {
		n, ok := next[old.ID]
		if !ok || n.StartTime != old.StartTime || n.Duration != old.Duration {
			c.stopLocked(old.ID)
			delete(c.finished, old.ID)
		}
		if !ok {
			c.urls.Release(old.ID)
		}
	}
	c.clips = timeline.CloneClips(clips)
}

func (c *Controller) SetTrim(trim timeline.VideoTrim) {
	c.mu.Lock()
	c.trim = trim
	c.mu.Unlock()
}

func (c *Controller) SetLooping(on bool) {
	c.mu.Lock()
	c.looping = on
	c.mu.Unlock()
}

// OnTimeUpdate handles one video time update.
func (c *Controller) OnTimeUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.video.CurrentTime()

	if c.trim.End > c.trim.Start && now >= c.trim.End {
		c.stopAllLocked()
		if c.looping {
			c.video.Seek(c.trim.Start)
			return
		}
		c.video.Pause()
		c.video.Seek(c.trim.Start)
		return
	}

	if c.video.Paused() {
		c.stopAllLocked()
		return
	}

	for _, clip := range c.clips {
		inWindow := clip.Active(now) && c.inTrim(now)
		_, playing := c.active[clip.ID]

		switch {
		case inWindow && !playing && !c.finished[clip.ID]:
			c.startLocked(clip, now)
		case !inWindow && playing:
			c.stopLocked(clip.ID)
			delete(c.finished, clip.ID)
		case !inWindow:
			delete(c.finished, clip.ID)
		}
	}
}

// OnSeek stops every playing clip after a scrub.
func (c *Controller) OnSeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAllLocked()
}

func (c *Controller) OnPause() {
	c.OnSeek()
}

// OnEnded handles the video reaching its end. Looping restarts at the trim
// start; otherwise the position returns to zero.
func (c *Controller) OnEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopAllLocked()
	if c.looping {
		c.video.Seek(c.trim.Start)
		c.video.Play()
		return
	}
	c.video.Seek(0)
}

// StopAll forces every clip to Idle.
func (c *Controller) StopAll() {
	c.OnSeek()
}

// Close stops playback and releases every cached URL.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAllLocked()
	for _, clip := range c.clips {
		c.urls.Release(clip.ID)
	}
}

func (c *Controller) State(clipID string) ClipState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[clipID]; ok {
		return Playing
	}
	return Idle
}

func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

func (c *Controller) inTrim(now float64) bool {
	if c.trim.End <= c.trim.Start {
		return true
	}
	return c.trim.Contains(now)
}

func (c *Controller) startLocked(clip timeline.AudioClip, now float64) {
	logger := c.logger.With("clip_id", clip.ID)

	url, err := c.urls.URL(clip)
	if err != nil {
		logger.Warn("audio clip url unavailable", "error", err)
		return
	}
	h, err := c.player.Open(url)
	if err != nil {
		logger.Warn("audio clip open failed", "error", err)
		return
	}

	h.Seek(math.Max(0, math.Min(now-clip.StartTime, clip.Duration)))
	if c.video.Muted() {
		h.SetVolume(0)
	} else {
		h.SetVolume(c.video.Volume())
	}

	c.gen++
	gen := c.gen
	id := clip.ID
	if err := h.Start(func() { c.clipEnded(id, gen) }); err != nil {
		logger.Warn("audio clip start failed", "error", err)
		h.Stop()
		return
	}
	c.active[id] = activeClip{handle: h, gen: gen}
	logger.Debug("audio clip playing", "offset", now-clip.StartTime)
}

func (c *Controller) clipEnded(id string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.active[id]
	if !ok || a.gen != gen {
		return
	}
	delete(c.active, id)
	c.finished[id] = true
}

func (c *Controller) stopLocked(id string) {
	a, ok := c.active[id]
	if !ok {
		return
	}
	delete(c.active, id)
	a.handle.Stop()
}

func (c *Controller) stopAllLocked() {
	for id := range c.active {
		c.stopLocked(id)
	}
	clear(c.finished)
}
