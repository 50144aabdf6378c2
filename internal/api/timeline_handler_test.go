package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angle-app/angle/internal/store"
	"github.com/angle-app/angle/internal/timeline"
)

func payload(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestTimeline_UnknownProject(t *testing.T) {
	cfg, _ := testConfig(t)
	rr := doJSON(t, NewRouter(cfg), http.MethodGet, "/api/projects/missing/timeline", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestWriteTimelineError_ProjectGone(t *testing.T) {
	rr := httptest.NewRecorder()
	writeTimelineError(rr, fmt.Errorf("save clips: %w", store.ErrNotFound))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", body["code"])
	}
}

func TestTimeline_VideoAndTrim(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p := createProject(t, cfg, "Demo")
	base := "/api/projects/" + p.ID

	rr := doJSON(t, router, http.MethodPut, base+"/timeline/trim", TrimRequest{Start: 1, End: 2})
	if rr.Code != http.StatusConflict {
		t.Errorf("trim before video status = %d, want 409", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPut, base+"/timeline/video", SetVideoRequest{VideoPath: "/videos/a.mp4", Duration: 30})
	if rr.Code != http.StatusOK {
		t.Fatalf("set video status = %d, body %s", rr.Code, rr.Body.String())
	}
	var state timeline.State
	json.Unmarshal(rr.Body.Bytes(), &state)
	if state.VideoDuration != 30 || state.Trim != (timeline.VideoTrim{Start: 0, End: 30}) {
		t.Errorf("state = %+v", state)
	}
	if len(state.Markers) == 0 {
		t.Error("markers missing")
	}
	got, _ := cfg.Store.GetProject(context.Background(), p.ID)
	if got.VideoPath != "/videos/a.mp4" {
		t.Errorf("project video = %q", got.VideoPath)
	}

	rr = doJSON(t, router, http.MethodPut, base+"/timeline/trim", TrimRequest{Start: 5, End: 50})
	json.Unmarshal(rr.Body.Bytes(), &state)
	if state.Trim != (timeline.VideoTrim{Start: 5, End: 30}) {
		t.Errorf("clamped trim = %+v", state.Trim)
	}

	rr = doJSON(t, router, http.MethodPut, base+"/timeline/trim", TrimRequest{Start: 8, End: 8})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty trim status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, router, http.MethodPut, base+"/timeline/trim", TrimRequest{Start: 3, End: 9, Audio: true})
	json.Unmarshal(rr.Body.Bytes(), &state)
	if state.AudioTrim != (timeline.VideoTrim{Start: 3, End: 9}) || state.Trim.Start != 5 {
		t.Errorf("audio trim = %+v, video trim = %+v", state.AudioTrim, state.Trim)
	}

	rr = doJSON(t, router, http.MethodPost, base+"/timeline/trim/reset", nil)
	json.Unmarshal(rr.Body.Bytes(), &state)
	if state.Trim != (timeline.VideoTrim{Start: 0, End: 30}) || state.AudioTrim != state.Trim {
		t.Errorf("reset trims = %+v %+v", state.Trim, state.AudioTrim)
	}

	rr = doJSON(t, router, http.MethodPut, base+"/timeline/loop", LoopRequest{Looping: true})
	json.Unmarshal(rr.Body.Bytes(), &state)
	if !state.Looping {
		t.Error("looping not set")
	}

	rr = doJSON(t, router, http.MethodPut, base+"/timeline/video", SetVideoRequest{Duration: -1})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("negative duration status = %d, want 400", rr.Code)
	}
}

func TestTimeline_InsertDecisionAndAutoTrim(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p, _ := setupSession(t, cfg, "/videos/a.mp4")
	base := "/api/projects/" + p.ID

	long := InsertAudioRequest{Name: "music", Duration: 50, BlobBase64: payload("webm")}
	rr := doJSON(t, router, http.MethodPost, base+"/audio", long)
	if rr.Code != http.StatusConflict {
		t.Fatalf("over-long insert status = %d, want 409", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "NEEDS_USER_DECISION" {
		t.Errorf("code = %v", body["code"])
	}
	details, _ := body["details"].(map[string]interface{})
	if details["overflow"] != float64(20) {
		t.Errorf("details = %v", details)
	}

	long.AutoTrim = true
	rr = doJSON(t, router, http.MethodPost, base+"/audio", long)
	if rr.Code != http.StatusCreated {
		t.Fatalf("auto-trim insert status = %d, body %s", rr.Code, rr.Body.String())
	}
	var clip timeline.AudioClip
	json.Unmarshal(rr.Body.Bytes(), &clip)
	if clip.Duration != 30 || clip.StartTime != 0 {
		t.Errorf("auto-trimmed clip = %+v", clip)
	}
}

func TestTimeline_InsertValidation(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p, _ := setupSession(t, cfg, "/videos/a.mp4")
	base := "/api/projects/" + p.ID

	tests := []struct {
		name string
		req  InsertAudioRequest
	}{
		{"bad base64", InsertAudioRequest{Duration: 2, BlobBase64: "%%%"}},
		{"empty payload", InsertAudioRequest{Duration: 2}},
		{"zero duration", InsertAudioRequest{BlobBase64: payload("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, base+"/audio", tt.req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestTimeline_MoveRemoveClear(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p, sess := setupSession(t, cfg, "/videos/a.mp4")
	base := "/api/projects/" + p.ID

	rr := doJSON(t, router, http.MethodPost, base+"/audio", InsertAudioRequest{Name: "vo", Duration: 10, StartTime: 2, BlobBase64: payload("a")})
	var clip timeline.AudioClip
	json.Unmarshal(rr.Body.Bytes(), &clip)

	rr = doJSON(t, router, http.MethodPatch, base+"/audio/"+clip.ID, MoveAudioRequest{OriginStart: 2, Delta: 100})
	if rr.Code != http.StatusOK {
		t.Fatalf("move status = %d, body %s", rr.Code, rr.Body.String())
	}
	var moved timeline.AudioClip
	json.Unmarshal(rr.Body.Bytes(), &moved)
	if moved.StartTime != 20 {
		t.Errorf("moved start = %v, want 20 (clamped to 30-10)", moved.StartTime)
	}

	rr = doJSON(t, router, http.MethodPatch, base+"/audio/missing", MoveAudioRequest{Delta: 1})
	if rr.Code != http.StatusNotFound {
		t.Errorf("move missing status = %d, want 404", rr.Code)
	}

	doJSON(t, router, http.MethodPost, base+"/audio", InsertAudioRequest{Name: "fx", Duration: 1, BlobBase64: payload("b")})
	rr = doJSON(t, router, http.MethodDelete, base+"/audio/"+clip.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d", rr.Code)
	}
	if n := len(sess.Clips()); n != 1 {
		t.Errorf("clips after remove = %d, want 1", n)
	}

	rr = doJSON(t, router, http.MethodDelete, base+"/audio", nil)
	if rr.Code != http.StatusNoContent || len(sess.Clips()) != 0 {
		t.Errorf("clear status = %d, clips = %d", rr.Code, len(sess.Clips()))
	}
}

func TestTimeline_ClipPlayback(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p, sess := setupSession(t, cfg, "/videos/a.mp4")

	clip, _, err := sess.InsertAudio(context.Background(), timeline.Candidate{Name: "vo", Source: []byte("0123456789"), Duration: 2}, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+p.ID+"/audio/"+clip.ID+"/playback", nil)
	req.Header.Set("Range", "bytes=2-5")
	req.RemoteAddr = "127.0.0.1:5555"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rr.Code)
	}
	if rr.Body.String() != "2345" {
		t.Errorf("body = %q", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/projects/"+p.ID+"/audio/"+clip.ID+"/playback", nil)
	req.RemoteAddr = "10.0.0.8:5555"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("remote playback status = %d, want 403", rr.Code)
	}
}

func TestTimeline_ClipsPersistAcrossSessions(t *testing.T) {
	cfg, _ := testConfig(t)
	router := NewRouter(cfg)
	p, _ := setupSession(t, cfg, "/videos/a.mp4")

	doJSON(t, router, http.MethodPost, "/api/projects/"+p.ID+"/audio", InsertAudioRequest{Name: "vo", Duration: 3, StartTime: 1, BlobBase64: payload("abc")})
	cfg.Sessions.Drop(p.ID)

	rr := doJSON(t, router, http.MethodGet, "/api/projects/"+p.ID+"/timeline", nil)
	var state timeline.State
	json.Unmarshal(rr.Body.Bytes(), &state)
	if len(state.Clips) != 1 || state.Clips[0].Name != "vo" {
		t.Errorf("reloaded clips = %+v", state.Clips)
	}
}
