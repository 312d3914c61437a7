package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrNoData is returned when there is no model to export.
var ErrNoData = errors.New("no weather data to export")

var header = []string{"DateTime", "Temperature (°C)", "Humidity (%)", "Weather", "Wind Speed (m/s)"}

// Row is one parsed line of an exported file.
type Row struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
	Weather     string
	WindSpeed   float64
}

// FileName derives the export file name from a display key:
// "New York, US" becomes "New_York_US_forecast.csv".
func FileName(displayKey string) string {
	safe := strings.ReplaceAll(displayKey, ",", "")
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, safe)
	return safe + "_forecast.csv"
}

// WriteCSV writes one row per sample of the full series of m.
func WriteCSV(w io.Writer, m *weather.PresentationModel) error {
	if m == nil {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range m.Series {
		record := []string{
			s.Timestamp.Format(time.RFC3339),
			formatFloat(s.Temperature),
			formatFloat(s.Humidity),
			s.WeatherDescription,
			formatFloat(s.WindSpeed),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile writes m to dir under FileName(m.City) and returns the path.
func SaveFile(dir string, m *weather.PresentationModel) (string, error) {
	if m == nil {
		return "", ErrNoData
	}
	path := filepath.Join(dir, FileName(m.City))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, m); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return Row{}, err
	}
	temp, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return Row{}, err
	}
	hum, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Row{}, err
	}
	wind, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Row{}, err
	}
	return Row{Timestamp: ts, Temperature: temp, Humidity: hum, Weather: rec[3], WindSpeed: wind}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
