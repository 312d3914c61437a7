package catalog

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the shortest query Search answers; shorter queries would
// flood the suggestion list on the first keystroke.
const MinQueryLength = 2

// CityRecord is one entry of the bulk city list.
type CityRecord struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// DisplayKey returns "name, country". Several records may share one.
func (r CityRecord) DisplayKey() string {
	return r.Name + ", " + r.Country
}

// Catalog is a read-only list of cities sorted by display key.
type Catalog struct {
	records []CityRecord
	keys    []string // display keys in records order
	folded  []string // lower-cased keys used for matching
}

// New builds a Catalog from records. Records with an id seen earlier or
// without a name are dropped; ties on display key keep id order.
func New(records []CityRecord) *Catalog {
	seen := make(map[int64]struct{}, len(records))
	kept := make([]CityRecord, 0, len(records))
	for _, r := range records {
		if r.Name == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		ki, kj := kept[i].DisplayKey(), kept[j].DisplayKey()
		if ki != kj {
			return ki < kj
		}
		return kept[i].ID < kept[j].ID
	})

	c := &Catalog{
		records: kept,
		keys:    make([]string, len(kept)),
		folded:  make([]string, len(kept)),
	}
	for i, r := range kept {
		c.keys[i] = r.DisplayKey()
		c.folded[i] = strings.ToLower(c.keys[i])
	}
	return c
}

// Empty returns a catalog with no cities, used when loading failed.
func Empty() *Catalog {
	return New(nil)
}

// Len reports the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Search returns up to limit display keys containing query, case-insensitively,
// in catalog order. Identical display keys are reported once, so the list
// never shows the same entry twice; use Lookup to tell the records behind a
// key apart.
func (c *Catalog) Search(query string, limit int) []string {
	if c == nil || limit <= 0 || utf8.RuneCountInString(query) < MinQueryLength {
		return []string{}
	}
	needle := strings.ToLower(query)

	out := make([]string, 0, limit)
	for i, key := range c.folded {
		if !strings.Contains(key, needle) {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == c.keys[i] {
			continue
		}
		out = append(out, c.keys[i])
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Lookup returns every record whose display key equals key exactly.
func (c *Catalog) Lookup(key string) []CityRecord {
	if c == nil {
		return nil
	}
	i := sort.SearchStrings(c.keys, key)
	var out []CityRecord
	for ; i < len(c.keys) && c.keys[i] == key; i++ {
		out = append(out, c.records[i])
	}
	return out
}
