// Package render submits generated scene code to the external render
// service and returns the locator of the rendered video.
package render

import (
	"context"
	"fmt"
	"log/slog"
)

type Request struct {
	Code      string `json:"code"`
	SceneName string `json:"sceneName"`
	JobID     string `json:"jobId"`
	ProjectID string `json:"projectId"`
}

// Result carries the rendered video locator, or Pending when the service
// accepted the job but has not finished it.
type Result struct {
	VideoURL string `json:"videoUrl,omitempty"`
	Pending  bool   `json:"pending,omitempty"`
}

type Client interface {
	Submit(ctx context.Context, req Request) (*Result, error)
}

// Error is a non-2xx response from the render service.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("render failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500
}

// StubClient is used when no render URL is configured. Every job stays
// pending.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Submit(ctx context.Context, req Request) (*Result, error) {
	c.logger.Info("render stub: job accepted without a render service",
		"job_id", req.JobID,
		"project_id", req.ProjectID,
		"scene", req.SceneName,
	)
	return &Result{Pending: true}, nil
}
