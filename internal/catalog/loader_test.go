package catalog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const cityList = `[
 {"id":2643743,"name":"London","state":"","country":"GB","coord":{"lon":-0.12574,"lat":51.50853}},
 {"id":2643736,"name":"Londonderry","state":"","country":"GB","coord":{"lon":-7.30917,"lat":54.99721}},
 {"id":2988507,"name":"Paris","state":"","country":"FR","coord":{"lon":2.3488,"lat":48.85341}}
]`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

type statusLog struct {
	mu    sync.Mutex
	lines []string
}

func (s *statusLog) add(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func newArchiveServer(t *testing.T, status int, body []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestLoader(srv *httptest.Server, path string) *Loader {
	l := NewLoader(srv.Client(), srv.URL, path)
	l.SetBackoff(providers.BackoffConfig{MaxRetries: 0})
	return l
}

func TestLoadDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := newArchiveServer(t, http.StatusOK, gzipped(t, cityList), &hits)
	path := filepath.Join(t.TempDir(), "city.list.json")

	var status statusLog
	l := newTestLoader(srv, path)
	l.OnStatus(status.add)

	c, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 cities, got %d", c.Len())
	}
	rec := c.Lookup("London, GB")
	if len(rec) != 1 || rec[0].Latitude != 51.50853 {
		t.Errorf("unexpected London record: %+v", rec)
	}

	cached, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected cache file: %v", err)
	}
	if string(cached) != cityList {
		t.Errorf("cache should hold the decompressed list")
	}

	wantStatus := []string{"Downloading city list...", "Extracting city list...", "City list downloaded successfully"}
	if len(status.lines) != len(wantStatus) {
		t.Fatalf("expected status %v, got %v", wantStatus, status.lines)
	}
	for i := range wantStatus {
		if status.lines[i] != wantStatus[i] {
			t.Errorf("status[%d]: expected %q, got %q", i, wantStatus[i], status.lines[i])
		}
	}

	// A second run reads the cache.
	c2, err := newTestLoader(srv, path).Load(context.Background())
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if c2.Len() != 3 {
		t.Errorf("expected 3 cached cities, got %d", c2.Len())
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected a single download, got %d", n)
	}
}

func TestLoadCorruptCacheRedownloads(t *testing.T) {
	var hits atomic.Int32
	srv := newArchiveServer(t, http.StatusOK, gzipped(t, cityList), &hits)
	path := filepath.Join(t.TempDir(), "city.list.json")

	if err := os.WriteFile(path, []byte(`[{"id":1,"name":"Lon`), 0o644); err != nil {
		t.Fatalf("write corrupt cache: %v", err)
	}

	c, err := newTestLoader(srv, path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 cities, got %d", c.Len())
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected a download after corrupt cache, got %d", n)
	}

	cached, _ := os.ReadFile(path)
	if string(cached) != cityList {
		t.Errorf("corrupt cache should have been replaced")
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       []byte
		wantStatus string
	}{
		{"http error", http.StatusNotFound, []byte("missing"), "Failed to download city list"},
		{"not an archive", http.StatusOK, []byte(cityList), "Failed to download city list"},
		{"unparseable list", http.StatusOK, gzipped(t, `{"oops":true}`), "Failed to load city list"},
		{"empty list", http.StatusOK, gzipped(t, `[]`), "Failed to load city list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := newArchiveServer(t, tt.status, tt.body, &hits)
			path := filepath.Join(t.TempDir(), "city.list.json")

			var status statusLog
			l := newTestLoader(srv, path)
			l.OnStatus(status.add)

			c, err := l.Load(context.Background())
			if !errors.Is(err, ErrCatalogUnavailable) {
				t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
			}
			if c != nil {
				t.Errorf("expected no catalog on failure")
			}
			if last := status.lines[len(status.lines)-1]; last != tt.wantStatus {
				t.Errorf("expected final status %q, got %q", tt.wantStatus, last)
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("nothing should be cached on failure")
			}
		})
	}
}

func TestLazyDegradesToEmpty(t *testing.T) {
	var hits atomic.Int32
	srv := newArchiveServer(t, http.StatusInternalServerError, nil, &hits)
	lazy := NewLazy(newTestLoader(srv, filepath.Join(t.TempDir(), "city.list.json")))

	for i := 0; i < 2; i++ {
		c, err := lazy.Get(context.Background())
		if !errors.Is(err, ErrCatalogUnavailable) {
			t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
		}
		if c == nil || c.Len() != 0 {
			t.Fatalf("expected an empty catalog, got %v", c)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected the load to run once, got %d", n)
	}
}

func TestLoadIgnoresClientTimeout(t *testing.T) {
	archive := gzipped(t, cityList)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(archive[:len(archive)/2])
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		w.Write(archive[len(archive)/2:])
	}))
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	l := NewLoader(client, srv.URL, filepath.Join(t.TempDir(), "city.list.json"))
	l.SetBackoff(providers.BackoffConfig{MaxRetries: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := l.Load(ctx)
	if err != nil {
		t.Fatalf("slow download should finish within the context: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 cities, got %d", c.Len())
	}
	if client.Timeout != 50*time.Millisecond {
		t.Error("the caller's client must not be modified")
	}
}
