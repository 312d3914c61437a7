package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no model was applied for a given city.
	ErrNotFound = errors.New("no weather data for city")
)

// ModelHistory holds the applied models of one city, oldest first.
type ModelHistory struct {
	Models []*weather.PresentationModel
}

// MemoryStore is a concurrency-safe in-memory history of applied
// presentation models, keyed by display key.
type MemoryStore struct {
	mu sync.RWMutex

	// key: display key, value: history
	data map[string]*ModelHistory

	// retention configuration
	maxHistory int           // max number of models per city
	maxAge     time.Duration // optional max age, by FetchedAt

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ModelHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a model under its display key and enforces retention.
func (s *MemoryStore) Save(m *weather.PresentationModel) {
	if m == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[m.City]
	if !ok {
		history = &ModelHistory{}
		s.data[m.City] = history
	}

	history.Models = append(history.Models, m)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Models) > s.maxHistory {
		over := len(history.Models) - s.maxHistory
		history.Models = append([]*weather.PresentationModel(nil), history.Models[over:]...)
	}

	// Enforce retention by age; the newest model always stays.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Models)-1; i++ {
			if !history.Models[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Models = history.Models[i:]
		}
	}
}

// GetLatest returns the most recent model for a city.
func (s *MemoryStore) GetLatest(city string) (*weather.PresentationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[city]
	if !ok || len(history.Models) == 0 {
		return nil, ErrNotFound
	}
	return history.Models[len(history.Models)-1], nil
}

// GetRange returns the models for a city fetched between from and to (inclusive).
func (s *MemoryStore) GetRange(city string, from, to time.Time) ([]*weather.PresentationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[city]
	if !ok || len(history.Models) == 0 {
		return nil, ErrNotFound
	}

	var result []*weather.PresentationModel
	for _, m := range history.Models {
		if !m.FetchedAt.Before(from) && !m.FetchedAt.After(to) {
			result = append(result, m)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// History returns a copy of every retained model for a city, oldest first.
func (s *MemoryStore) History(city string) ([]*weather.PresentationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[city]
	if !ok || len(history.Models) == 0 {
		return nil, ErrNotFound
	}
	return append([]*weather.PresentationModel(nil), history.Models...), nil
}
