package catalog

import (
	"reflect"
	"testing"
)

func testCatalog() *Catalog {
	return New([]CityRecord{
		{ID: 2643743, Name: "London", Country: "GB", Latitude: 51.5085, Longitude: -0.1257},
		{ID: 2988507, Name: "Paris", Country: "FR"},
		{ID: 2643736, Name: "Londonderry", Country: "GB"},
		{ID: 6058560, Name: "London", Country: "CA"},
		{ID: 3128760, Name: "Barcelona", Country: "ES"},
	})
}

func TestSearchSubstringInDisplayKeyOrder(t *testing.T) {
	c := testCatalog()

	got := c.Search("lon", 5)
	want := []string{"Barcelona, ES", "London, CA", "London, GB", "Londonderry, GB"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Search(lon) = %v, want %v", got, want)
	}
}

func TestSearchIsCaseInsensitiveAndCapped(t *testing.T) {
	c := testCatalog()

	got := c.Search("LONDON", 2)
	want := []string{"London, CA", "London, GB"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Search(LONDON, 2) = %v, want %v", got, want)
	}

	if got := c.Search(", gb", 5); len(got) != 2 {
		t.Errorf("expected country part to match too, got %v", got)
	}
}

func TestSearchShortQueries(t *testing.T) {
	c := testCatalog()

	for _, q := range []string{"", "l", "é"} {
		got := c.Search(q, 5)
		if got == nil || len(got) != 0 {
			t.Errorf("Search(%q) = %v, want empty non-nil slice", q, got)
		}
	}
	if got := c.Search("lo", 0); len(got) != 0 {
		t.Errorf("limit 0 should yield nothing, got %v", got)
	}
}

func TestDuplicateDisplayKeys(t *testing.T) {
	c := New([]CityRecord{
		{ID: 2, Name: "Springfield", Country: "US", Latitude: 39.8},
		{ID: 1, Name: "Springfield", Country: "US", Latitude: 37.2},
		{ID: 3, Name: "Springfield", Country: "US"},
		{ID: 3, Name: "Shadow", Country: "US"}, // reused id
		{ID: 4, Name: "", Country: "US"},
	})

	if c.Len() != 3 {
		t.Fatalf("expected 3 records after dropping duplicates, got %d", c.Len())
	}

	if got := c.Search("spring", 5); !reflect.DeepEqual(got, []string{"Springfield, US"}) {
		t.Errorf("expected one suggestion, got %v", got)
	}

	records := c.Lookup("Springfield, US")
	if len(records) != 3 {
		t.Fatalf("expected 3 records for the shared key, got %d", len(records))
	}
	for i, r := range records {
		if r.ID != int64(i+1) {
			t.Errorf("records[%d]: expected id %d, got %d", i, i+1, r.ID)
		}
	}

	if got := c.Lookup("Shelbyville, US"); len(got) != 0 {
		t.Errorf("expected no records, got %v", got)
	}
}

func TestEmptyCatalog(t *testing.T) {
	var nilCatalog *Catalog
	if got := nilCatalog.Search("london", 5); len(got) != 0 {
		t.Errorf("nil catalog should find nothing, got %v", got)
	}
	if Empty().Len() != 0 {
		t.Errorf("Empty should have no records")
	}
}
