package render

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPClient_Submit_Success(t *testing.T) {
	var received Request
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		json.NewEncoder(w).Encode(map[string]string{"videoUrl": "/renders/job-1.mp4"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", "test-token", testLogger())
	res, err := client.Submit(context.Background(), Request{
		Code:      "class Intro(Scene): pass",
		SceneName: "Intro",
		ProjectID: "p1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.VideoURL != "/renders/job-1.mp4" || res.Pending {
		t.Errorf("result = %+v", res)
	}
	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if received.SceneName != "Intro" || received.ProjectID != "p1" || received.JobID == "" {
		t.Errorf("request = %+v", received)
	}
}

func TestHTTPClient_Submit_Pending(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"accepted", http.StatusAccepted, ``},
		{"no url", http.StatusOK, `{"status":"queued"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			res, err := NewHTTPClient(server.URL, "", testLogger()).Submit(context.Background(), Request{JobID: "j"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Pending {
				t.Errorf("result = %+v, want pending", res)
			}
		})
	}
}

func TestHTTPClient_Submit_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"client error", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			_, err := NewHTTPClient(server.URL, "", testLogger()).Submit(context.Background(), Request{})
			var renderErr *Error
			if !errors.As(err, &renderErr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if renderErr.StatusCode != tt.status || renderErr.Body != "nope" {
				t.Errorf("error = %+v", renderErr)
			}
			if renderErr.IsRetryable() != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", renderErr.IsRetryable(), tt.retryable)
			}
		})
	}
}

func TestStubClient(t *testing.T) {
	var c Client = NewStubClient(testLogger())
	res, err := c.Submit(context.Background(), Request{JobID: "j"})
	if err != nil || !res.Pending {
		t.Errorf("Submit() = %+v, %v", res, err)
	}
}
