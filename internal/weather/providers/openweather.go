package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	maxForecastBody    = 4 << 20
)

// OpenWeatherProvider implements weather.ForecastSource for the OpenWeatherMap
// 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	units   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider builds a provider that never retries on its own:
// every retry is a new fetch started by the user. limiter may be nil.
func NewOpenWeatherProvider(client *http.Client, apiKey string, limiter *rate.Limiter) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		units:   "metric",
		baseURL: defaultForecastURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Limiter: limiter,
		},
		circuit: NewCircuitBreaker("openweather-forecast"),
	}
}

// SetBaseURL overrides the forecast endpoint.
func (p *OpenWeatherProvider) SetBaseURL(baseURL string) {
	if baseURL != "" {
		p.baseURL = baseURL
	}
}

// SetUnits selects the unit system the upstream converts to ("metric", "imperial", "standard").
func (p *OpenWeatherProvider) SetUnits(units string) {
	if units != "" {
		p.units = units
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, city string) (weather.ForecastPayload, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", p.units)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := DoRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ForecastPayload{}, networkError(city, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxForecastBody))
	if err != nil {
		return weather.ForecastPayload{}, networkError(city, err)
	}

	var payload weather.ForecastPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return weather.ForecastPayload{}, weather.NewFetchError(weather.ErrNotFound, city,
				fmt.Errorf("status %d", resp.StatusCode))
		}
		return weather.ForecastPayload{}, weather.NewFetchError(weather.ErrMalformedResponse, city, err)
	}

	switch {
	case payload.Cod == "" && resp.StatusCode == http.StatusOK:
		return weather.ForecastPayload{}, weather.NewFetchError(weather.ErrMalformedResponse, city,
			fmt.Errorf("missing cod"))
	case payload.Cod != weather.StatusOK || resp.StatusCode != http.StatusOK:
		return weather.ForecastPayload{}, weather.NewFetchError(weather.ErrNotFound, city,
			fmt.Errorf("cod %s: %s", payload.Cod, payload.MessageText()))
	}

	return payload, nil
}

// networkError classifies transport failures; timeouts also match weather.ErrTimeout.
func networkError(city string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return weather.NewFetchError(weather.ErrNetwork, city, errors.Join(weather.ErrTimeout, err))
	}
	return weather.NewFetchError(weather.ErrNetwork, city, err)
}

// Compile-time interface check.
var _ weather.ForecastSource = (*OpenWeatherProvider)(nil)

