package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPClient talks to the render service over HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

type renderResponse struct {
	VideoURL string `json:"videoUrl"`
	Status   string `json:"status"`
}

func (c *HTTPClient) Submit(ctx context.Context, r Request) (*Result, error) {
	if r.JobID == "" {
		r.JobID = uuid.NewString()
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	url := c.baseURL + "/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.logger.Info("submitting render job",
		"url", url,
		"job_id", r.JobID,
		"project_id", r.ProjectID,
		"scene", r.SceneName,
		"code_bytes", len(r.Code),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if resp.StatusCode == http.StatusAccepted {
		return &Result{Pending: true}, nil
	}

	var out renderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if out.VideoURL == "" {
		return &Result{Pending: true}, nil
	}

	c.logger.Info("render job finished", "job_id", r.JobID, "video_url", out.VideoURL)
	return &Result{VideoURL: out.VideoURL}, nil
}
