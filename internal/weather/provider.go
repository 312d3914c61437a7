package weather

import (
	"context"
	"strings"
)

// ForecastSource abstracts the upstream 3-hour forecast API.
// Implementations return *FetchError values of kind ErrNetwork, ErrNotFound
// or ErrMalformedResponse.
type ForecastSource interface {
	Name() string
	FetchForecast(ctx context.Context, city string) (ForecastPayload, error)
}

// UpstreamQuery reduces a display key such as "London, GB" to the bare city
// name the forecast endpoint expects. Cities sharing a name are not told apart.
func UpstreamQuery(query string) string {
	name, _, _ := strings.Cut(query, ",")
	return strings.TrimSpace(name)
}
