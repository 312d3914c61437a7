package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func model(city string, fetchedAt time.Time) *weather.PresentationModel {
	return &weather.PresentationModel{City: city, FetchedAt: fetchedAt}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.Save(model("London, GB", base.Add(time.Duration(i)*time.Hour)))
	}

	h, err := s.History("London, GB")
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(h) != 2 {
		t.Fatalf("expected 2 models, got %d", len(h))
	}
	if !h[0].FetchedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("expected the oldest model to be dropped")
	}

	latest, err := s.GetLatest("London, GB")
	if err != nil || !latest.FetchedAt.Equal(base.Add(2*time.Hour)) {
		t.Errorf("unexpected latest: %v %v", latest, err)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.Save(model("Oslo, NO", now.Add(-3*time.Hour)))
	s.Save(model("Oslo, NO", now.Add(-2*time.Hour)))
	s.Save(model("Oslo, NO", now.Add(-10*time.Minute)))

	h, _ := s.History("Oslo, NO")
	if len(h) != 1 {
		t.Fatalf("expected only the recent model, got %d", len(h))
	}

	// The newest model survives even when it is itself too old.
	s2 := NewMemoryStore(0, time.Hour)
	s2.now = func() time.Time { return now }
	s2.Save(model("Rome, IT", now.Add(-5*time.Hour)))
	if _, err := s2.GetLatest("Rome, IT"); err != nil {
		t.Errorf("expected the only model to be kept: %v", err)
	}
}

func TestMemoryStoreRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s.Save(model("Paris, FR", base.Add(time.Duration(i)*time.Hour)))
	}

	got, err := s.GetRange("Paris, FR", base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetRange returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 models in range, got %d", len(got))
	}

	if _, err := s.GetRange("Paris, FR", base.Add(10*time.Hour), base.Add(11*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty range, got %v", err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)
	s.Save(nil)

	if _, err := s.GetLatest("Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.History("Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
