package media

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// Prober reports which media tools are installed.
type Prober interface {
	Probe(ctx context.Context) (*Capabilities, error)
}

// Probe looks up every tool on PATH and records its version banner.
func (f *FFmpeg) Probe(ctx context.Context) (*Capabilities, error) {
	caps := &Capabilities{Tools: make(map[string]ToolInfo), ProbedAt: time.Now()}
	for _, name := range []string{FFmpegTool, FFprobeTool, FFplayTool} {
		caps.Tools[name] = f.probeTool(ctx, name)
	}

	f.cfg.Logger.Info("media doctor probe complete",
		"ffmpeg", caps.Tools[FFmpegTool].Available,
		"ffprobe", caps.Tools[FFprobeTool].Available,
		"ffplay", caps.Tools[FFplayTool].Available,
	)
	return caps, nil
}

func (f *FFmpeg) probeTool(ctx context.Context, name string) ToolInfo {
	path, err := exec.LookPath(f.Path(name))
	if err != nil {
		return ToolInfo{Error: err.Error()}
	}

	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return ToolInfo{Path: path, Error: err.Error()}
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	version := ""
	if sc.Scan() {
		version = strings.TrimSpace(sc.Text())
	}
	return ToolInfo{Available: true, Path: path, Version: version}
}

// CachedDoctor wraps a Prober to cache results with a TTL. This avoids
// spawning three subprocesses on every health check.
type CachedDoctor struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(prober Prober, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		prober: prober,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.prober.Probe(ctx)
	if err != nil {
		d.logger.Warn("media doctor probe failed", "error", err)
		if d.cached != nil {
			d.logger.Info("returning stale capabilities cache")
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
