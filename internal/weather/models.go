package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
	ConditionWind    Condition = "wind"
)

// defaultIcon is shown for categories the upstream adds that we do not know yet.
const defaultIcon = "🌡️"

var icons = map[string]string{
	"Clear":        "☀️",
	"Clouds":       "☁️",
	"Rain":         "🌧️",
	"Drizzle":      "🌦️",
	"Thunderstorm": "⛈️",
	"Snow":         "❄️",
	"Mist":         "🌫️",
	"Fog":          "🌫️",
	"Haze":         "🌫️",
	"Smoke":        "🌫️",
	"Dust":         "🌫️",
	"Sand":         "🌫️",
	"Ash":          "🌫️",
	"Squall":       "💨",
	"Tornado":      "🌪️",
}

// Icon returns the glyph for an upstream weather category tag such as "Clouds".
func Icon(main string) string {
	if icon, ok := icons[main]; ok {
		return icon
	}
	return defaultIcon
}

// ConditionFromMain maps an upstream weather category tag to a Condition.
func ConditionFromMain(main string) Condition {
	switch main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return ConditionMist
	case "Squall", "Tornado":
		return ConditionWind
	default:
		return ConditionUnknown
	}
}

// City identifies a place the way the upstream API reports it.
type City struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// DisplayName returns "name, country", or just the name when no country is known.
func (c City) DisplayName() string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + ", " + c.Country
}

// ForecastSample is one 3-hour reading. Values are in the unit system the
// forecast was requested in.
type ForecastSample struct {
	Timestamp          time.Time `json:"timestamp"`
	Temperature        float64   `json:"temperature"`
	FeelsLike          float64   `json:"feelsLike"`
	Humidity           float64   `json:"humidityPercent"`
	Pressure           float64   `json:"pressureHpa"`
	WindSpeed          float64   `json:"windSpeed"`
	WeatherMain        string    `json:"weatherMain"`
	WeatherDescription string    `json:"weatherDescription"`
	Precipitation3h    *float64  `json:"precipitation3h,omitempty"`

	Condition Condition `json:"condition"`
	Icon      string    `json:"icon"`
}

// DailySummary is the sample chosen to represent one calendar day.
type DailySummary struct {
	Day    string         `json:"day"` // YYYY-MM-DD
	Sample ForecastSample `json:"sample"`
}

// PresentationModel is the snapshot handed to renderers and exporters.
// It is built in one piece by Aggregate and must not be modified afterwards;
// share it by pointer and copy before changing anything.
type PresentationModel struct {
	FetchID string `json:"fetchId"`

	// City is the display key the user asked for; Upstream is what the API resolved it to.
	City     string `json:"city"`
	Upstream City   `json:"upstream"`

	Current      ForecastSample   `json:"current"`
	Daily        []DailySummary   `json:"daily"`
	ShortHorizon []ForecastSample `json:"shortHorizon"`
	Series       []ForecastSample `json:"series"`

	FetchedAt time.Time `json:"fetchedAt"`
}
