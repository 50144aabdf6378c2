package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Resolver turns a video locator into a readable local path. Remote sources
// are downloaded into the export's scratch space.
type Resolver struct {
	PublicDir string
	WorkDir   string
	WorkerURL string
	Client    *http.Client
	Logger    *slog.Logger
}

func NewResolver(publicDir, workerURL string, logger *slog.Logger) *Resolver {
	wd, _ := os.Getwd()
	return &Resolver{
		PublicDir: publicDir,
		WorkDir:   wd,
		WorkerURL: strings.TrimRight(workerURL, "/"),
		Client:    &http.Client{Timeout: 10 * time.Minute},
		Logger:    logger,
	}
}

// Resolve tries, in order: an http(s) URL, the public directory, the working
// directory and finally the worker URL.
func (r *Resolver) Resolve(ctx context.Context, locator string, sc *Scratch) (string, error) {
	if strings.TrimSpace(locator) == "" {
		return "", &SourceNotFoundError{RequestedPath: locator}
	}

	if isRemote(locator) {
		p, err := r.download(ctx, locator, sc)
		if err != nil {
			return "", downloadFailed(ctx, locator, []string{locator}, err)
		}
		return p, nil
	}

	clean := locator
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}

	var attempted []string
	publicPath := filepath.Join(r.PublicDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	attempted = append(attempted, publicPath)
	if isFile(publicPath) {
		return publicPath, nil
	}

	localPath := locator
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(r.WorkDir, locator)
	}
	attempted = append(attempted, localPath)
	if isFile(localPath) {
		return localPath, nil
	}

	if r.WorkerURL == "" {
		return "", &SourceNotFoundError{RequestedPath: locator, Attempted: attempted}
	}

	remote := r.WorkerURL + "/" + strings.TrimPrefix(locator, "/")
	attempted = append(attempted, remote)
	p, err := r.download(ctx, remote, sc)
	if err != nil {
		return "", downloadFailed(ctx, locator, attempted, err)
	}
	return p, nil
}

// downloadFailed reports a cancelled or timed-out export as the context
// error rather than a missing source.
func downloadFailed(ctx context.Context, locator string, attempted []string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("download %s: %w", locator, ctxErr)
	}
	return &SourceNotFoundError{RequestedPath: locator, Attempted: attempted, Cause: err}
}

func (r *Resolver) download(ctx context.Context, rawURL string, sc *Scratch) (string, error) {
	ext := ".mp4"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 6 {
			ext = e
		}
	}
	dst := sc.Path("download", ext)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	r.Logger.Info("downloading source video", "url", rawURL)
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("write download file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close download file: %w", err)
	}
	return dst, nil
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
