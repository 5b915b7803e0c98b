// Package loader fetches the raw text of zone sources. A source is either an http(s) URL or a path
// relative to the configured base directory.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrSourceUnreachable is returned when a source cannot be fetched.
var ErrSourceUnreachable = errors.New("zone source unreachable")

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Loader reads zone sources from the network or the local filesystem.
type Loader struct {
	baseDir string
	client  *http.Client
}

// New creates a loader resolving local sources against baseDir.
func New(baseDir string, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Loader{
		baseDir: baseDir,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsRemote reports whether the source is fetched over HTTP.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Path returns the local file path of a non-remote source.
func (l *Loader) Path(source string) string {
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Join(l.baseDir, source)
}

// Fetch returns the content of the source.
func (l *Loader) Fetch(ctx context.Context, source string) (string, error) {
	if IsRemote(source) {
		return l.fetchRemote(ctx, source)
	}
	return l.fetchFile(ctx, source)
}

func (l *Loader) fetchRemote(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("loader: %w: %s: %v", ErrSourceUnreachable, url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("loader: %w: %s: %v", ErrSourceUnreachable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("loader: %w: %s: unexpected status %d", ErrSourceUnreachable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("loader: %w: %s: %v", ErrSourceUnreachable, url, err)
	}
	return string(body), nil
}

func (l *Loader) fetchFile(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("loader: %w: %s: %v", ErrSourceUnreachable, source, err)
	}

	data, err := os.ReadFile(l.Path(source))
	if err != nil {
		return "", fmt.Errorf("loader: %w: %s: %v", ErrSourceUnreachable, source, err)
	}
	return string(data), nil
}
