package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeString(t *testing.T) {
	tests := []struct {
		name string
		rng  Range
		want string
	}{
		{"open ended", Range{Offset: 10}, "bytes=10-"},
		{"sized", Range{Offset: 10, Size: 5}, "bytes=10-14"},
		{"from start", Range{Size: 1}, "bytes=0-0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rng.String())
		})
	}
}

func newMemTransport(t *testing.T, files map[string]string) *DirTransport {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return NewDirTransportFS(fs)
}

func TestDirTransportFetch(t *testing.T) {
	tr := newMemTransport(t, map[string]string{
		"dks/mtd/Mtd.mtdbnd": "materials",
	})

	var progress []float64
	b, err := tr.Fetch(context.Background(), "dks/mtd/Mtd.mtdbnd", nil, func(f float64) {
		progress = append(progress, f)
	})
	require.NoError(t, err)
	assert.Equal(t, "materials", string(b))
	require.NotEmpty(t, progress)
	assert.Equal(t, 1.0, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestDirTransportFetchRange(t *testing.T) {
	tr := newMemTransport(t, map[string]string{"a.bin": "0123456789"})

	b, err := tr.Fetch(context.Background(), "a.bin", &Range{Offset: 2, Size: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, "234", string(b))

	b, err = tr.Fetch(context.Background(), "a.bin", &Range{Offset: 7}, nil)
	require.NoError(t, err)
	assert.Equal(t, "789", string(b))

	_, err = tr.Fetch(context.Background(), "a.bin", &Range{Offset: 11}, nil)
	assert.Error(t, err)
}

func TestDirTransportMissingFile(t *testing.T) {
	tr := newMemTransport(t, nil)
	_, err := tr.Fetch(context.Background(), "dks/missing.msb", nil, nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDirTransportCancelled(t *testing.T) {
	tr := newMemTransport(t, map[string]string{"a.bin": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Fetch(ctx, "a.bin", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirTransportWatch(t *testing.T) {
	root := t.TempDir()
	tr, err := NewDirTransport(root)
	require.NoError(t, err)

	events := core.NewEventSystem()
	var (
		mu      sync.Mutex
		changed []string
	)
	events.Register(core.EVENT_CODE_ASSET_CHANGED, t, func(ctx core.EventContext) bool {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, ctx.Data.(*core.AssetChangedEvent).Path)
		return true
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Watch(ctx, events) }()

	target := filepath.Join(root, "m10.msb")
	i := 0
	assert.Eventually(t, func() bool {
		i++
		_ = os.WriteFile(target, []byte(fmt.Sprintf("rev %d", i)), 0o644)
		mu.Lock()
		defer mu.Unlock()
		for _, p := range changed {
			if p == "m10.msb" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestDirTransportWatchNeedsDirectory(t *testing.T) {
	tr := newMemTransport(t, nil)
	assert.Error(t, tr.Watch(context.Background(), core.NewEventSystem()))
}

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dks/m10_01_00_00_arc.crg1":
			if rng := r.Header.Get("Range"); rng != "" {
				assert.Equal(t, "bytes=1-2", rng)
				w.WriteHeader(http.StatusPartialContent)
				_, _ = w.Write([]byte("rc"))
				return
			}
			w.Header().Set("Content-Length", "7")
			_, _ = w.Write([]byte("archive"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(&HTTPTransportConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	var last float64
	b, err := tr.Fetch(context.Background(), "dks/m10_01_00_00_arc.crg1", nil, func(f float64) { last = f })
	require.NoError(t, err)
	assert.Equal(t, "archive", string(b))
	assert.Equal(t, 1.0, last)

	b, err = tr.Fetch(context.Background(), "dks/m10_01_00_00_arc.crg1", &Range{Offset: 1, Size: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, "rc", string(b))

	_, err = tr.Fetch(context.Background(), "dks/missing", nil, nil)
	assert.ErrorContains(t, err, "404")
}

func TestHTTPTransportServerIgnoresRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789ABCDEF"))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(&HTTPTransportConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	tests := []struct {
		name string
		rng  Range
		want string
	}{
		{"middle", Range{Offset: 4, Size: 4}, "4567"},
		{"open ended", Range{Offset: 12}, "CDEF"},
		{"past the end", Range{Offset: 14, Size: 10}, "EF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := tt.rng
			b, err := tr.Fetch(context.Background(), "x", &rng, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}

	_, err = tr.Fetch(context.Background(), "x", &Range{Offset: 16, Size: 1}, nil)
	assert.ErrorContains(t, err, "starts past the end")
}

func TestNewHTTPTransportValidatesConfig(t *testing.T) {
	_, err := NewHTTPTransport(&HTTPTransportConfig{})
	assert.Error(t, err)
	_, err = NewHTTPTransport(&HTTPTransportConfig{BaseURL: "http://x", Timeout: -time.Second})
	assert.Error(t, err)
}
