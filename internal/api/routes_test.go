package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/angle-app/angle/internal/db"
	"github.com/angle-app/angle/internal/export"
	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/playback"
	"github.com/angle-app/angle/internal/render"
	"github.com/angle-app/angle/internal/store"
	"github.com/angle-app/angle/internal/timeline"
)

type fakeExporter struct {
	mu       sync.Mutex
	requests []export.Request
	result   *export.Result
	err      error
	block    chan struct{}
}

func (f *fakeExporter) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &export.Result{
		ID:          "e1",
		Filename:    "export-e1.mp4",
		ContentType: export.ContentTypeMP4,
		Data:        []byte("mp4-bytes"),
		ClipsMixed:  len(req.Clips),
	}, nil
}

func (f *fakeExporter) calls() []export.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]export.Request(nil), f.requests...)
}

type fakeRender struct {
	result *render.Result
	err    error
	got    render.Request
}

func (f *fakeRender) Submit(ctx context.Context, req render.Request) (*render.Result, error) {
	f.got = req
	return f.result, f.err
}

type fakeProber struct {
	caps *media.Capabilities
	err  error
}

func (f *fakeProber) Probe(ctx context.Context) (*media.Capabilities, error) {
	return f.caps, f.err
}

func testConfig(t *testing.T) (ServerConfig, *fakeExporter) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exporter := &fakeExporter{}
	return ServerConfig{
		Store:      store.NewService(store.NewRepository(database.Conn()), logger),
		Sessions:   timeline.NewManager(store.NewClipStore(database.Conn()), logger),
		Exporter:   exporter,
		ClipServer: playback.NewClipServer(logger),
		Logger:     logger,
		StartTime:  time.Now(),
		Version:    "test",
	}, exporter
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal error: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return body
}

func createProject(t *testing.T, cfg ServerConfig, name string) *store.Project {
	t.Helper()
	p, err := cfg.Store.CreateProject(context.Background(), name)
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func TestHealthHandler_NilDoctor(t *testing.T) {
	cfg, _ := testConfig(t)
	rr := doJSON(t, NewRouter(cfg), http.MethodGet, "/health", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["tools"]; ok {
		t.Error("tools should be omitted when doctor is nil")
	}
}

func TestHealthHandler_WithCaps(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Doctor = media.NewCachedDoctor(&fakeProber{caps: &media.Capabilities{
		Tools: map[string]media.ToolInfo{
			media.FFmpegTool:  {Available: true},
			media.FFprobeTool: {Available: true},
			media.FFplayTool:  {Available: false},
		},
		ProbedAt: time.Now(),
	}}, cfg.Logger)

	rr := doJSON(t, NewRouter(cfg), http.MethodGet, "/health", nil)
	body := decodeJSONBody(t, rr)
	if body["can_export"] != true || body["can_preview"] != false {
		t.Errorf("body = %v", body)
	}
	tools, _ := body["tools"].(map[string]interface{})
	if tools["ffmpeg"] != true || tools["ffplay"] != false {
		t.Errorf("tools = %v", tools)
	}
}

func TestHealthHandler_ProbeFailure(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Doctor = media.NewCachedDoctor(&fakeProber{err: errors.New("no ffmpeg")}, cfg.Logger)

	rr := doJSON(t, NewRouter(cfg), http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeJSONBody(t, rr); body["status"] != "degraded" || body["can_export"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestProjectsCRUD(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)

	rr := doJSON(t, router, http.MethodPost, "/api/projects", CreateProjectRequest{Name: "Pythagoras"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created ProjectResponse
	json.Unmarshal(rr.Body.Bytes(), &created)
	if created.ID == "" || created.Name != "Pythagoras" {
		t.Fatalf("created = %+v", created)
	}

	rr = doJSON(t, router, http.MethodPost, "/api/projects", CreateProjectRequest{Name: " "})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/projects", nil)
	var list ProjectsResponse
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Projects) != 1 || list.Projects[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	rr = doJSON(t, router, http.MethodDelete, "/api/projects/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, router, http.MethodDelete, "/api/projects/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestPrompts(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p := createProject(t, cfg, "Demo")

	rr := doJSON(t, router, http.MethodPost, "/api/prompts", CreatePromptRequest{ProjectID: p.ID, UsrMsg: "draw a circle", LlmRes: "class Circle(Scene): ..."})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, http.MethodPost, "/api/prompts", CreatePromptRequest{ProjectID: "missing", UsrMsg: "x"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown project status = %d, want 404", rr.Code)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/prompts", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing projectId status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/prompts?projectId="+p.ID, nil)
	var resp PromptsResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Prompts) != 1 || resp.Prompts[0].UsrMsg != "draw a circle" {
		t.Errorf("prompts = %+v", resp.Prompts)
	}
}

func TestRenderHandler(t *testing.T) {
	tests := []struct {
		name       string
		result     *render.Result
		err        error
		wantStatus int
		wantVideo  string
	}{
		{"done", &render.Result{VideoURL: "https://cdn.example/v.mp4"}, nil, http.StatusOK, "https://cdn.example/v.mp4"},
		{"pending", &render.Result{Pending: true}, nil, http.StatusAccepted, ""},
		{"rejected", nil, &render.Error{StatusCode: 422, Body: "bad scene"}, http.StatusBadRequest, ""},
		{"upstream down", nil, &render.Error{StatusCode: 503}, http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := testConfig(t)
			fr := &fakeRender{result: tt.result, err: tt.err}
			cfg.Render = fr
			p := createProject(t, cfg, "Demo")

			rr := doJSON(t, NewRouter(cfg), http.MethodPost, "/api/render", RenderRequest{Code: "x", SceneName: "Circle", ProjectID: p.ID})
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if fr.got.JobID == "" || fr.got.ProjectID != p.ID || fr.got.SceneName != "Circle" {
				t.Errorf("render request = %+v", fr.got)
			}

			got, _ := cfg.Store.GetProject(context.Background(), p.ID)
			if got.VideoPath != tt.wantVideo {
				t.Errorf("project video = %q, want %q", got.VideoPath, tt.wantVideo)
			}
		})
	}
}

func TestRenderHandler_Validation(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)

	rr := doJSON(t, router, http.MethodPost, "/api/render", RenderRequest{Code: "x"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing scene status = %d, want 400", rr.Code)
	}
	rr = doJSON(t, router, http.MethodPost, "/api/render", RenderRequest{Code: "x", SceneName: "S"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("no render client status = %d, want 503", rr.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	cfg, _ := testConfig(t)
	p := createProject(t, cfg, "Demo")
	ctx := context.Background()
	cfg.Store.StartExport(ctx, p.ID)
	if _, err := cfg.Sessions.Get(ctx, p.ID); err != nil {
		t.Fatal(err)
	}

	rr := doJSON(t, NewRouter(cfg), http.MethodGet, "/api/status", nil)
	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Projects != 1 || resp.OpenSessions != 1 || resp.ExportsRunning != 1 || len(resp.RecentExports) != 1 {
		t.Errorf("status = %+v", resp)
	}
}
