package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestScratch(t *testing.T) *Scratch {
	t.Helper()
	sc, err := NewScratch(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func TestResolvePublicDir(t *testing.T) {
	public := t.TempDir()
	os.MkdirAll(filepath.Join(public, "videos"), 0755)
	want := filepath.Join(public, "videos", "a.mp4")
	os.WriteFile(want, []byte("x"), 0644)

	r := NewResolver(public, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	got, err := r.Resolve(context.Background(), "/videos/a.mp4?t=123", newTestScratch(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveWorkDir(t *testing.T) {
	work := t.TempDir()
	want := filepath.Join(work, "local.mp4")
	os.WriteFile(want, []byte("x"), 0644)

	r := NewResolver(t.TempDir(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.WorkDir = work
	got, err := r.Resolve(context.Background(), "local.mp4", newTestScratch(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/renders/out.mp4" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("remote-bytes"))
	}))
	defer srv.Close()

	sc := newTestScratch(t)
	r := NewResolver(t.TempDir(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := r.Resolve(context.Background(), srv.URL+"/renders/out.mp4", sc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, _ := os.ReadFile(got)
	if string(b) != "remote-bytes" {
		t.Errorf("downloaded %q", b)
	}
	if len(sc.Paths()) != 1 {
		t.Errorf("download not tracked: %v", sc.Paths())
	}

	sc.Cleanup()
	if _, err := os.Stat(got); !errors.Is(err, os.ErrNotExist) {
		t.Error("download survived cleanup")
	}
}

func TestResolveWorkerFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/jobs/1.mp4" {
			w.Write([]byte("worker"))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResolver(t.TempDir(), srv.URL+"/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.WorkDir = t.TempDir()

	got, err := r.Resolve(context.Background(), "/jobs/1.mp4", newTestScratch(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, _ := os.ReadFile(got)
	if string(b) != "worker" {
		t.Errorf("downloaded %q", b)
	}

	_, err = r.Resolve(context.Background(), "/jobs/2.mp4", newTestScratch(t))
	var nf *SourceNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want SourceNotFoundError", err)
	}
	if len(nf.Attempted) != 3 || nf.Cause == nil {
		t.Errorf("SourceNotFoundError = %+v", nf)
	}
}

func TestResolveEmpty(t *testing.T) {
	r := NewResolver(t.TempDir(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := r.Resolve(context.Background(), "  ", newTestScratch(t)); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("error = %v, want ErrSourceNotFound", err)
	}
}

func TestResolveDownloadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewResolver(t.TempDir(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := r.Resolve(ctx, srv.URL+"/slow.mp4", newTestScratch(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
	if errors.Is(err, ErrSourceNotFound) {
		t.Error("timed-out download reported as missing source")
	}
}
