package api

import (
	"time"

	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/store"
)

// maxBodyBytes bounds JSON bodies. Export requests carry base64 audio.
const maxBodyBytes = 256 << 20

type HealthResponse struct {
	Status     string          `json:"status"`
	Version    string          `json:"version"`
	UptimeS    int64           `json:"uptime_s"`
	CanExport  bool            `json:"can_export"`
	CanPreview bool            `json:"can_preview"`
	Tools      map[string]bool `json:"tools,omitempty"`
	ProbedAt   string          `json:"probed_at,omitempty"`
}

type StatusResponse struct {
	Projects       int                   `json:"projects"`
	OpenSessions   int                   `json:"open_sessions"`
	ExportsRunning int                   `json:"exports_running"`
	RecentExports  []*store.ExportRecord `json:"recent_exports"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VideoPath string `json:"videoPath,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type CreatePromptRequest struct {
	ProjectID string `json:"projectId"`
	UsrMsg    string `json:"usrMsg"`
	LlmRes    string `json:"llmRes"`
}

type PromptsResponse struct {
	Prompts []*store.Prompt `json:"prompts"`
}

type RenderRequest struct {
	Code      string `json:"code"`
	SceneName string `json:"sceneName"`
	ProjectID string `json:"projectId"`
}

type RenderResponse struct {
	JobID    string `json:"jobId"`
	VideoURL string `json:"videoUrl,omitempty"`
	Pending  bool   `json:"pending"`
}

type SetVideoRequest struct {
	VideoPath string  `json:"videoPath,omitempty"`
	Duration  float64 `json:"duration"`
}

type TrimRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Audio targets the main-audio trim instead of the video trim.
	Audio bool `json:"audio,omitempty"`
}

type LoopRequest struct {
	Looping bool `json:"looping"`
}

type InsertAudioRequest struct {
	Name       string  `json:"name"`
	Duration   float64 `json:"duration"`
	StartTime  float64 `json:"startTime"`
	BlobBase64 string  `json:"blobBase64"`
	AutoTrim   bool    `json:"autoTrim,omitempty"`
}

type MoveAudioRequest struct {
	OriginStart float64 `json:"originStart"`
	Delta       float64 `json:"delta"`
}

type ExportsResponse struct {
	Exports []*store.ExportRecord `json:"exports"`
}

func ProjectToResponse(p *store.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		VideoPath: p.VideoPath,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func healthFromCaps(resp *HealthResponse, caps *media.Capabilities) {
	if caps == nil {
		return
	}
	resp.CanExport = caps.CanExport()
	resp.CanPreview = caps.CanPreview()
	resp.Tools = make(map[string]bool, len(caps.Tools))
	for name, info := range caps.Tools {
		resp.Tools[name] = info.Available
	}
	if !caps.ProbedAt.IsZero() {
		resp.ProbedAt = caps.ProbedAt.Format(time.RFC3339)
	}
}
