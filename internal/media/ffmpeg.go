package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

// Tool is the media tool contract used by the export orchestrator.
type Tool interface {
	// HasAudioStream reports whether the file has at least one audio stream.
	HasAudioStream(ctx context.Context, path string) (bool, error)

	// ProbeDuration returns the container duration in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// Run executes a command built by the filter-graph builder.
	Run(ctx context.Context, cmd Command) RunResult
}

// Config holds tool paths. Empty paths fall back to the tool name on PATH.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	FFplayPath  string
	Logger      *slog.Logger
}

// FFmpeg is the subprocess implementation of Tool.
type FFmpeg struct {
	cfg Config
}

func NewFFmpeg(cfg Config) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = FFmpegTool
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = FFprobeTool
	}
	if cfg.FFplayPath == "" {
		cfg.FFplayPath = FFplayTool
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FFmpeg{cfg: cfg}
}

// Path returns the configured binary for a tool name.
func (f *FFmpeg) Path(name string) string {
	switch name {
	case FFmpegTool:
		return f.cfg.FFmpegPath
	case FFprobeTool:
		return f.cfg.FFprobePath
	case FFplayTool:
		return f.cfg.FFplayPath
	}
	return name
}

func (f *FFmpeg) HasAudioStream(ctx context.Context, path string) (bool, error) {
	out, err := f.output(ctx, Command{
		Name: FFprobeTool,
		Args: []string{
			"-v", "error",
			"-select_streams", "a",
			"-show_entries", "stream=codec_type",
			"-of", "csv=p=0",
			path,
		},
	})
	if err != nil {
		return false, fmt.Errorf("ffprobe audio streams: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "audio" {
			return true, nil
		}
	}
	return false, nil
}

func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := f.output(ctx, Command{
		Name: FFprobeTool,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	s := strings.TrimSpace(string(out))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

// Run executes cmd and returns its outcome. A missing Output file after a
// clean exit is reported as a failure.
func (f *FFmpeg) Run(ctx context.Context, cmd Command) RunResult {
	start := time.Now()

	if cmd.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cmd.Output), 0755); err != nil {
			f.cfg.Logger.Error("cannot create output dir", "error", err)
			return RunResult{ExitCode: -1, StderrTail: err.Error(), Duration: time.Since(start)}
		}
	}

	c := exec.CommandContext(ctx, f.Path(cmd.Name), cmd.Args...)

	var stderrBuf bytes.Buffer
	c.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	c.Stdout = io.Discard

	f.cfg.Logger.Info("executing media command", "command", cmd.String())

	err := c.Run()
	elapsed := time.Since(start)

	exitCode := exitCodeOf(err)
	stderrTail := stderrBuf.String()

	if exitCode == 0 && cmd.Output != "" {
		if _, statErr := os.Stat(cmd.Output); statErr != nil {
			exitCode = -1
			stderrTail += "\noutput file not produced: " + filepath.Base(cmd.Output)
		}
	}

	if exitCode != 0 {
		f.cfg.Logger.Warn("media command failed",
			"command", cmd.String(),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		f.cfg.Logger.Info("media command succeeded",
			"tool", cmd.Name,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: cmd.Output,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

// output runs a probe command and returns its stdout.
func (f *FFmpeg) output(ctx context.Context, cmd Command) ([]byte, error) {
	c := exec.CommandContext(ctx, f.Path(cmd.Name), cmd.Args...)

	var stdout, stderrBuf bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}

	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", cmd.String(), err, truncate(stderrBuf.String(), 512))
	}
	return stdout.Bytes(), nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
