// Package store persists projects, prompts, audio clips and export history
// in SQLite.
package store

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VideoPath string    `json:"video_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Prompt is one exchange with the assistant that generated a project's video.
type Prompt struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Timestamp int64  `json:"timestamp"`
	UsrMsg    string `json:"usr_msg"`
	LlmRes    string `json:"llm_res"`
}

const (
	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

type ExportRecord struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id,omitempty"`
	Status     string    `json:"status"`
	Filename   string    `json:"filename,omitempty"`
	Bytes      int       `json:"bytes"`
	ClipsMixed int       `json:"clips_mixed"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewID() string {
	return uuid.NewString()
}
