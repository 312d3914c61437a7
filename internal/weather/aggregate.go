package weather

import (
	"fmt"
	"time"
)

const (
	// DailyDays is the number of daily summaries we try to produce.
	DailyDays = 5
	// ShortHorizonSamples is roughly 24 hours at 3-hour resolution.
	ShortHorizonSamples = 8

	noonFirstHour = 11
	noonLastHour  = 14

	dayKeyLayout = "2006-01-02"
)

// Aggregate turns a raw forecast payload into a PresentationModel for the
// given display key. It fails with ErrMalformedResponse if the city object is
// absent, any sample misses a required field or the series is empty.
func Aggregate(payload ForecastPayload, city string, fetchedAt time.Time) (*PresentationModel, error) {
	if len(payload.List) == 0 {
		return nil, NewFetchError(ErrMalformedResponse, city, fmt.Errorf("empty forecast list"))
	}
	if payload.City == nil {
		return nil, NewFetchError(ErrMalformedResponse, city, fmt.Errorf("missing city"))
	}

	loc := payloadLocation(payload.City)

	series := make([]ForecastSample, 0, len(payload.List))
	for i, entry := range payload.List {
		s, err := entry.sample(loc)
		if err != nil {
			return nil, NewFetchError(ErrMalformedResponse, city, fmt.Errorf("list[%d]: %w", i, err))
		}
		series = append(series, s)
	}

	return &PresentationModel{
		City:         city,
		Upstream:     City{Name: payload.City.Name, Country: payload.City.Country},
		Current:      series[0],
		Daily:        DailySummaries(series),
		ShortHorizon: ShortHorizon(series),
		Series:       series,
		FetchedAt:    fetchedAt,
	}, nil
}

// DailySummaries picks one sample per calendar day. It prefers samples whose
// local hour falls in [11, 14]; if that does not yield DailyDays days it starts
// over and takes the first sample of each day instead.
func DailySummaries(series []ForecastSample) []DailySummary {
	daily := selectDays(series, func(s ForecastSample) bool {
		h := s.Timestamp.Hour()
		return h >= noonFirstHour && h <= noonLastHour
	})
	if len(daily) >= DailyDays {
		return daily
	}
	return selectDays(series, func(ForecastSample) bool { return true })
}

// selectDays claims each new day key with the first sample accepted by keep,
// walking the series in order and stopping at DailyDays days.
func selectDays(series []ForecastSample, keep func(ForecastSample) bool) []DailySummary {
	claimed := make(map[string]struct{}, DailyDays)
	out := make([]DailySummary, 0, DailyDays)

	for _, s := range series {
		day := s.Timestamp.Format(dayKeyLayout)
		if _, ok := claimed[day]; !ok && keep(s) {
			claimed[day] = struct{}{}
			out = append(out, DailySummary{Day: day, Sample: s})
		}
		if len(out) >= DailyDays {
			break
		}
	}
	return out
}

// ShortHorizon returns the first ShortHorizonSamples samples, or all of them
// when the series is shorter. The result shares no memory with series.
func ShortHorizon(series []ForecastSample) []ForecastSample {
	n := min(len(series), ShortHorizonSamples)
	out := make([]ForecastSample, n)
	copy(out, series[:n])
	return out
}

// payloadLocation returns the zone day keys are computed in: the city's UTC
// offset when the payload reports it, otherwise UTC.
func payloadLocation(c *PayloadCity) *time.Location {
	if c == nil || c.Timezone == nil {
		return time.UTC
	}
	return time.FixedZone("city", *c.Timezone)
}

func (e PayloadEntry) sample(loc *time.Location) (ForecastSample, error) {
	switch {
	case e.Dt == nil:
		return ForecastSample{}, fmt.Errorf("missing dt")
	case e.Main == nil:
		return ForecastSample{}, fmt.Errorf("missing main")
	case e.Main.Temp == nil, e.Main.FeelsLike == nil, e.Main.Humidity == nil, e.Main.Pressure == nil:
		return ForecastSample{}, fmt.Errorf("incomplete main")
	case len(e.Weather) == 0:
		return ForecastSample{}, fmt.Errorf("missing weather")
	case e.Weather[0].Main == "":
		return ForecastSample{}, fmt.Errorf("missing weather category")
	case e.Wind == nil || e.Wind.Speed == nil:
		return ForecastSample{}, fmt.Errorf("missing wind speed")
	}

	s := ForecastSample{
		Timestamp:          time.Unix(*e.Dt, 0).In(loc),
		Temperature:        *e.Main.Temp,
		FeelsLike:          *e.Main.FeelsLike,
		Humidity:           *e.Main.Humidity,
		Pressure:           *e.Main.Pressure,
		WindSpeed:          *e.Wind.Speed,
		WeatherMain:        e.Weather[0].Main,
		WeatherDescription: e.Weather[0].Description,
		Condition:          ConditionFromMain(e.Weather[0].Main),
		Icon:               Icon(e.Weather[0].Main),
	}
	if e.Rain != nil && e.Rain.ThreeH != nil {
		v := *e.Rain.ThreeH
		s.Precipitation3h = &v
	}
	return s, nil
}
