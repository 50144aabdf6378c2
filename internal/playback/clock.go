package playback

import (
	"context"
	"math"
	"sync"
	"time"
)

// Clock is a Video driven by wall time instead of a decoder. The preview
// command uses it to exercise the controller without a video window.
type Clock struct {
	mu       sync.Mutex
	pos      float64
	duration float64
	paused   bool
	volume   float64
	muted    bool
}

func NewClock(duration float64) *Clock {
	return &Clock{duration: duration, paused: true, volume: 1}
}

func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Clock) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *Clock) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Clock) Seek(sec float64) {
	c.mu.Lock()
	c.pos = math.Max(0, math.Min(sec, c.duration))
	c.mu.Unlock()
}

func (c *Clock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Clock) Play() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

func (c *Clock) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = math.Max(0, math.Min(1, v))
	c.mu.Unlock()
}

func (c *Clock) SetMuted(m bool) {
	c.mu.Lock()
	c.muted = m
	c.mu.Unlock()
}

// Advance moves the position forward by d while playing. It reports whether
// the end of the video was reached.
func (c *Clock) Advance(d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return false
	}
	c.pos += d.Seconds()
	if c.pos >= c.duration {
		c.pos = c.duration
		c.paused = true
		return true
	}
	return false
}

// Drive advances the clock every tick and feeds the controller until ctx is
// done or the video ends without looping.
func Drive(ctx context.Context, ctrl *Controller, clock *Clock, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ctrl.StopAll()
			return ctx.Err()
		case <-ticker.C:
			if clock.Advance(tick) {
				ctrl.OnEnded()
				if clock.Paused() {
					return nil
				}
				continue
			}
			ctrl.OnTimeUpdate()
			if clock.Paused() {
				ctrl.StopAll()
				return nil
			}
		}
	}
}
