// Package ui runs the system tray menu for the desktop build.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/store"
)

const refreshInterval = 5 * time.Second

// StatusSource is the part of the store the tray reads.
type StatusSource interface {
	CountProjects(ctx context.Context) (int, error)
	ListExports(ctx context.Context, projectID string, limit int) ([]*store.ExportRecord, error)
}

type Tray struct {
	status StatusSource
	doctor *media.CachedDoctor
	logger *slog.Logger
	url    string

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	toolsItem    *systray.MenuItem

	mu sync.Mutex

	onOpen func() error
	onQuit func()
	stop   chan struct{}
}

type TrayConfig struct {
	Status StatusSource
	Doctor *media.CachedDoctor
	Logger *slog.Logger
	URL    string
	OnOpen func() error
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		status: cfg.Status,
		doctor: cfg.Doctor,
		logger: cfg.Logger,
		url:    cfg.URL,
		onOpen: cfg.OnOpen,
		onQuit: cfg.OnQuit,
		stop:   make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Angle")
	systray.SetTooltip("Angle timeline server " + t.url)

	t.statusItem = systray.AddMenuItem("Exports: idle", "Export activity")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem("Projects: 0", "Saved projects")
	t.projectsItem.Disable()

	t.toolsItem = systray.AddMenuItem("ffmpeg: checking...", "Media tools")
	t.toolsItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Editor", t.url)
	recheckItem := systray.AddMenuItem("Recheck ffmpeg", "Probe media tools again")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Angle")

	go t.refreshLoop()

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				t.handleOpen()
			case <-recheckItem.ClickedCh:
				t.recheckTools()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				close(t.stop)
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	t.refresh()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.refresh()
		}
	}
}

func (t *Tray) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshInterval)
	defer cancel()

	if n, err := t.status.CountProjects(ctx); err == nil {
		t.UpdateProjectsCount(n)
	}
	if recent, err := t.status.ListExports(ctx, "", 20); err == nil {
		t.UpdateStatus(exportStatus(recent))
	}
	if t.doctor != nil {
		t.updateTools(t.doctor.Peek())
	}
}

func (t *Tray) recheckTools() {
	if t.doctor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	caps, err := t.doctor.Refresh(ctx)
	if err != nil {
		t.logger.Error("media tool probe failed", "error", err)
	}
	t.updateTools(caps)
}

func (t *Tray) handleOpen() {
	if t.onOpen != nil {
		if err := t.onOpen(); err != nil {
			t.logger.Error("failed to open editor", "error", err)
		}
	}
}

// exportStatus summarises recent exports, newest first, for the menu.
func exportStatus(recent []*store.ExportRecord) string {
	running := 0
	for _, e := range recent {
		if e.Status == store.ExportStatusRunning {
			running++
		}
	}
	switch {
	case running > 0:
		return fmt.Sprintf("%d running", running)
	case len(recent) > 0 && recent[0].Status == store.ExportStatusFailed:
		return "last export failed"
	default:
		return "idle"
	}
}

func toolsStatus(caps *media.Capabilities) string {
	switch {
	case caps == nil:
		return "ffmpeg: unknown"
	case caps.CanExport():
		return "ffmpeg: ready"
	default:
		return "ffmpeg: missing"
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle("Exports: " + status)
}

func (t *Tray) UpdateProjectsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.projectsItem.SetTitle(fmt.Sprintf("Projects: %d", count))
}

func (t *Tray) updateTools(caps *media.Capabilities) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toolsItem.SetTitle(toolsStatus(caps))
}

func (t *Tray) Quit() {
	systray.Quit()
}
