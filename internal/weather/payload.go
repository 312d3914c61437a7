package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// StatusOK is the "cod" value of a successful forecast response.
const StatusOK = "200"

// StatusCode holds the upstream "cod" field, which arrives as a JSON string on
// success and sometimes as a number on errors.
type StatusCode string

func (s *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = StatusCode(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cod: %w", err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*s = StatusCode(strconv.FormatInt(i, 10))
		return nil
	}
	*s = StatusCode(n.String())
	return nil
}

// ForecastPayload mirrors the fields of the 5 day / 3 hour forecast response
// that we consume. Pointers mark fields whose absence must be detected.
type ForecastPayload struct {
	Cod     StatusCode      `json:"cod"`
	Message json.RawMessage `json:"message,omitempty"`
	City    *PayloadCity    `json:"city"`
	List    []PayloadEntry  `json:"list"`
}

// PayloadCity is the "city" object of the forecast response.
type PayloadCity struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	// Timezone is the shift in seconds from UTC.
	Timezone *int `json:"timezone"`
}

// PayloadEntry is one element of the "list" array.
type PayloadEntry struct {
	Dt   *int64 `json:"dt"`
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		ThreeH *float64 `json:"3h"`
	} `json:"rain,omitempty"`
}

// MessageText returns the upstream "message" field as plain text.
func (p ForecastPayload) MessageText() string {
	if len(p.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Message, &s); err == nil {
		return s
	}
	return string(p.Message)
}
