package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = `{"type":"FeatureCollection","features":[]}`

func TestLoader_FetchRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zones.json":
			_, _ = w.Write([]byte(body))
		case "/slow.json":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := New(t.TempDir(), 50*time.Millisecond)

	tests := []struct {
		name        string
		source      string
		expectError bool
	}{
		{name: "ok", source: srv.URL + "/zones.json"},
		{name: "not found", source: srv.URL + "/missing.json", expectError: true},
		{name: "timeout", source: srv.URL + "/slow.json", expectError: true},
		{name: "connection refused", source: "http://127.0.0.1:1/zones.json", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Fetch(context.Background(), tt.source)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrSourceUnreachable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, body, got)
		})
	}
}

func TestLoader_FetchFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zones"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zones", "home.json"), []byte(body), 0o644))

	l := New(dir, 0)

	got, err := l.Fetch(context.Background(), "zones/home.json")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	_, err = l.Fetch(context.Background(), "zones/missing.json")
	assert.ErrorIs(t, err, ErrSourceUnreachable)
}

func TestLoader_FetchFile_CancelledContext(t *testing.T) {
	l := New(t.TempDir(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Fetch(ctx, "zones.json")
	assert.ErrorIs(t, err, ErrSourceUnreachable)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("http://example.com/zones.json"))
	assert.True(t, IsRemote("HTTPS://example.com/zones.json"))
	assert.False(t, IsRemote("polygonal_zones/zones.json"))
	assert.False(t, IsRemote("/config/http.json"))
}

func TestLoader_Path(t *testing.T) {
	l := New("/config", 0)
	assert.Equal(t, "/config/zones/a.json", l.Path("zones/a.json"))
	assert.Equal(t, "/data/a.json", l.Path("/data/a.json"))
}
