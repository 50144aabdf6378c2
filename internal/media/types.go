// Package media runs the external ffmpeg tool family (ffmpeg, ffprobe,
// ffplay) as subprocesses and reports structured results.
package media

import (
	"strconv"
	"strings"
	"time"
)

// Tool names accepted in Command.Name.
const (
	FFmpegTool  = "ffmpeg"
	FFprobeTool = "ffprobe"
	FFplayTool  = "ffplay"
)

// Command is one invocation of an external media tool. Output, when set, is
// the file the command is expected to produce.
type Command struct {
	Name   string
	Args   []string
	Output string
}

// String renders the command the way it would be typed in a shell. The
// rendering depends only on Name and Args.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=,+@%", r)
}

// RunResult is the structured outcome of a media subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"` // last N bytes of stderr
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// Capabilities reports which tools are installed, as found by the doctor.
type Capabilities struct {
	Tools    map[string]ToolInfo `json:"tools"`
	ProbedAt time.Time           `json:"probed_at"`
}

type ToolInfo struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CanExport is true when both ffmpeg and ffprobe are usable.
func (c *Capabilities) CanExport() bool {
	return c != nil && c.Tools[FFmpegTool].Available && c.Tools[FFprobeTool].Available
}

func (c *Capabilities) CanPreview() bool {
	return c != nil && c.Tools[FFplayTool].Available
}

// Seconds formats a time in seconds with millisecond precision.
func Seconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
