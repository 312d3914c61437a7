package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	OpenWeatherAPIKey string

	// ForecastURL and Units shape the upstream forecast request.
	ForecastURL string
	Units       string

	// HTTPTimeout bounds every outbound call and each fetch as a whole.
	HTTPTimeout time.Duration

	// ForecastRPS and ForecastBurst throttle forecast requests.
	ForecastRPS   float64
	ForecastBurst int

	// City catalog source and cache file.
	CatalogURL  string
	CatalogPath string

	SuggestionLimit int

	// RefreshInterval re-fetches the selected city (0 = disabled).
	RefreshInterval time.Duration

	// In-memory history retention.
	StoreMaxHistory int           // max number of models per city (0 = unlimited)
	StoreMaxAge     time.Duration // max age of models (0 = unlimited)

	ExportDir string
	Port      string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.ForecastURL = getenvDefault("FORECAST_URL", "https://api.openweathermap.org/data/2.5/forecast")
	cfg.Units = getenvDefault("UNITS", "metric")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	cfg.ForecastRPS, err = strconv.ParseFloat(getenvDefault("FORECAST_RPS", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_RPS: %w", err)
	}
	cfg.ForecastBurst = getenvInt("FORECAST_BURST", 5)

	cfg.CatalogURL = getenvDefault("CATALOG_URL", "http://bulk.openweathermap.org/sample/city.list.json.gz")
	cfg.CatalogPath = getenvDefault("CATALOG_PATH", "city.list.json")
	cfg.SuggestionLimit = getenvInt("SUGGESTION_LIMIT", 5)

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 24)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.ExportDir = getenvDefault("EXPORT_DIR", ".")
	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.OpenWeatherAPIKey == "" {
		log.Printf("INFO: OPENWEATHER_API_KEY is not set; forecast requests will be rejected upstream")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
