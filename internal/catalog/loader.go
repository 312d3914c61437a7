package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const (
	DefaultURL  = "http://bulk.openweathermap.org/sample/city.list.json.gz"
	DefaultPath = "city.list.json"
)

// ErrCatalogUnavailable wraps every failure to produce a catalog. It is never
// fatal: callers fall back to Empty and lose autocomplete only.
var ErrCatalogUnavailable = errors.New("city catalog unavailable")

// rawCity is the shape of one element of the bulk city list.
type rawCity struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Coord   struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
}

// Loader reads the city catalog from a local cache file, downloading and
// caching the gzip archive when the file is missing or unreadable.
type Loader struct {
	url     string
	path    string
	httpCfg providers.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	status  func(string)
}

// NewLoader creates a Loader. Empty url or path select the defaults.
// client.Timeout is not applied: the archive is several MB, so the download
// is bounded by the context passed to Load instead.
func NewLoader(client *http.Client, url, path string) *Loader {
	download := &http.Client{}
	if client != nil {
		c := *client
		c.Timeout = 0
		download = &c
	}
	if url == "" {
		url = DefaultURL
	}
	if path == "" {
		path = DefaultPath
	}
	return &Loader{
		url:  url,
		path: path,
		httpCfg: providers.HTTPClientConfig{
			Client: download,
			Backoff: providers.BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: providers.NewCircuitBreaker("city-catalog"),
		status:  func(string) {},
	}
}

// OnStatus registers a callback receiving progress text.
func (l *Loader) OnStatus(fn func(string)) {
	if fn != nil {
		l.status = fn
	}
}

// SetBackoff overrides the download retry policy.
func (l *Loader) SetBackoff(b providers.BackoffConfig) {
	l.httpCfg.Backoff = b
}

// Load returns the cached catalog, or downloads, caches and returns it.
// A corrupt cache is treated as absent.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	if records, err := l.readCache(); err == nil {
		log.Printf("INFO: loaded %d cities from %s", len(records), l.path)
		return New(records), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("INFO: ignoring city cache %s: %v", l.path, err)
	}

	data, err := l.download(ctx)
	if err != nil {
		l.status("Failed to download city list")
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	records, err := parse(data)
	if err != nil {
		l.status("Failed to load city list")
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	if err := writeFileAtomic(l.path, data); err != nil {
		// The cache only saves the next download.
		log.Printf("INFO: could not persist city list to %s: %v", l.path, err)
	}
	l.status("City list downloaded successfully")

	return New(records), nil
}

func (l *Loader) readCache() ([]CityRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	l.status("Downloading city list...")

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, l.url, nil)
	}
	resp, err := providers.DoRequest(ctx, l.httpCfg, l.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	l.status("Extracting city list...")
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("extract archive: %w", err)
	}
	return data, nil
}

func parse(data []byte) ([]CityRecord, error) {
	var raw []rawCity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse city list: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse city list: no cities")
	}

	records := make([]CityRecord, 0, len(raw))
	for _, c := range raw {
		records = append(records, CityRecord{
			ID:        c.ID,
			Name:      c.Name,
			Country:   c.Country,
			Latitude:  c.Coord.Lat,
			Longitude: c.Coord.Lon,
		})
	}
	return records, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Lazy loads the catalog once, on first use. Failures degrade to Empty.
type Lazy struct {
	loader *Loader

	once    sync.Once
	catalog *Catalog
	err     error
}

// NewLazy wraps loader.
func NewLazy(loader *Loader) *Lazy {
	return &Lazy{loader: loader}
}

// Get returns the catalog, loading it on the first call. The error, if any,
// is ErrCatalogUnavailable and the returned catalog is then Empty.
func (z *Lazy) Get(ctx context.Context) (*Catalog, error) {
	z.once.Do(func() {
		z.catalog, z.err = z.loader.Load(ctx)
		if z.err != nil {
			log.Printf("ERROR: %v; search will be limited", z.err)
			z.catalog = Empty()
		}
	})
	return z.catalog, z.err
}
