package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport failures, upstream 5xx and an open circuit.
	ErrNetwork = errors.New("network error")
	// ErrTimeout is reported together with ErrNetwork when the request ran out of time.
	ErrTimeout = errors.New("request timed out")
	// ErrNotFound is returned when the upstream reports no data for the query.
	ErrNotFound = errors.New("no weather data for query")
	// ErrMalformedResponse is returned when the payload is missing expected fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrEmptyQuery is returned before any network work when the query is blank.
	ErrEmptyQuery = errors.New("please enter a city name")
)

// FetchError describes why a forecast fetch failed. Kind is one of the
// sentinel errors above, so callers can use errors.Is on the FetchError itself.
type FetchError struct {
	Kind  error
	Query string
	Err   error
}

// NewFetchError builds a FetchError of the given kind.
func NewFetchError(kind error, query string, err error) *FetchError {
	return &FetchError{Kind: kind, Query: query, Err: err}
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %q: %v", e.Query, e.Kind)
	}
	return fmt.Sprintf("fetch %q: %v: %v", e.Query, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage renders err as the text shown to the user.
func UserMessage(query string, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyQuery):
		return "Please enter a city name"
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Couldn't find weather data for %s", query)
	case errors.Is(err, ErrTimeout):
		return fmt.Sprintf("The weather service did not answer in time for %s", query)
	case errors.Is(err, ErrNetwork):
		var fe *FetchError
		if errors.As(err, &fe) && fe.Err != nil {
			return fmt.Sprintf("Could not reach the weather service: %v", fe.Err)
		}
		return "Could not reach the weather service"
	case errors.Is(err, ErrMalformedResponse):
		return "The weather service returned an unexpected response"
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
