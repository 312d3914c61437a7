package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/catalog"
	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/export"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// CitySource yields the city catalog, loading it on first use.
type CitySource interface {
	Get(ctx context.Context) (*catalog.Catalog, error)
}

// Dashboard is the part of the orchestrator the routes drive.
type Dashboard interface {
	Get(query string) <-chan dashboard.Result
	Current() *weather.PresentationModel
	Busy() bool
	Status() string
	Announce(text string)
}

// Deps bundles what the routes need.
type Deps struct {
	Cities          CitySource
	Dashboard       Dashboard
	History         *store.MemoryStore
	ExportDir       string
	SuggestionLimit int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.SuggestionLimit <= 0 {
		deps.SuggestionLimit = 5
	}
	v1 := app.Group("/api/v1")

	v1.Get("/cities", func(c *fiber.Ctx) error {
		q := searchQuery{
			Query: c.Query("q"),
			Limit: c.QueryInt("limit", deps.SuggestionLimit),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cat, err := deps.Cities.Get(c.UserContext())
		return c.JSON(fiber.Map{
			"query":       q.Query,
			"suggestions": cat.Search(q.Query, q.Limit),
			"degraded":    err != nil,
		})
	})

	v1.Get("/cities/lookup", func(c *fiber.Ctx) error {
		q := lookupQuery{Name: c.Query("name")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cat, _ := deps.Cities.Get(c.UserContext())
		records := cat.Lookup(q.Name)
		if len(records) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no city with that name")
		}
		return c.JSON(records)
	})

	v1.Post("/weather", func(c *fiber.Ctx) error {
		q := weatherQuery{City: c.Query("city")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, weather.UserMessage("", weather.ErrEmptyQuery))
		}

		res := <-deps.Dashboard.Get(q.City)
		if res.Err != nil {
			return fetchError(q.City, res.Err)
		}
		return c.JSON(res.Model)
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		m := deps.Dashboard.Current()
		if m == nil {
			return fiber.NewError(fiber.StatusNotFound, "no weather data loaded yet")
		}
		return c.JSON(m)
	})

	v1.Get("/weather/latest", func(c *fiber.Ctx) error {
		q := weatherQuery{City: c.Query("city")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		m, err := deps.History.GetLatest(q.City)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather history")
		}
		return c.JSON(m)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			models []*weather.PresentationModel
			err    error
		)
		if req.Range != nil {
			models, err = deps.History.GetRange(req.City, req.Range.From, req.Range.To)
		} else {
			models, err = deps.History.History(req.City)
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather history")
		}

		items := make([]historyItem, 0, len(models))
		for _, m := range models {
			items = append(items, historyItem{FetchID: m.FetchID, FetchedAt: m.FetchedAt, Current: m.Current})
		}
		resp := fiber.Map{"city": req.City, "history": items}
		if req.Range != nil {
			resp["from"] = req.Range.From
			resp["to"] = req.Range.To
		}
		return c.JSON(resp)
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"busy":   deps.Dashboard.Busy(),
			"status": deps.Dashboard.Status(),
		})
	})

	v1.Get("/weather/export", func(c *fiber.Ctx) error {
		m := deps.Dashboard.Current()
		if m == nil {
			return fiber.NewError(fiber.StatusNotFound, export.ErrNoData.Error())
		}

		c.Attachment(export.FileName(m.City))
		if err := export.WriteCSV(c.Response().BodyWriter(), m); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to export data")
		}
		return nil
	})

	v1.Post("/weather/export", func(c *fiber.Ctx) error {
		m := deps.Dashboard.Current()
		if m == nil {
			return fiber.NewError(fiber.StatusNotFound, export.ErrNoData.Error())
		}

		path, err := export.SaveFile(deps.ExportDir, m)
		if err != nil {
			deps.Dashboard.Announce("Export failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to export data: "+err.Error())
		}
		deps.Dashboard.Announce("Weather data exported to " + path)
		return c.JSON(fiber.Map{"file": path})
	})
}

// fetchError maps a fetch failure to an HTTP error carrying the user message.
func fetchError(query string, err error) error {
	msg := weather.UserMessage(query, err)
	switch {
	case errors.Is(err, weather.ErrEmptyQuery):
		return fiber.NewError(fiber.StatusBadRequest, msg)
	case errors.Is(err, weather.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, msg)
	case errors.Is(err, weather.ErrMalformedResponse):
		return fiber.NewError(fiber.StatusBadGateway, msg)
	case errors.Is(err, weather.ErrTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, msg)
	case errors.Is(err, weather.ErrNetwork):
		return fiber.NewError(fiber.StatusServiceUnavailable, msg)
	case errors.Is(err, dashboard.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, "a newer request replaced this one")
	case errors.Is(err, dashboard.ErrStopped):
		return fiber.NewError(fiber.StatusServiceUnavailable, "shutting down")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, msg)
	}
}

// searchQuery holds query parameters for the suggestion endpoint.
// Queries shorter than catalog.MinQueryLength are valid and yield nothing.
type searchQuery struct {
	Query string
	Limit int `validate:"min=1,max=50"`
}

// lookupQuery identifies a display key such as "London, GB".
type lookupQuery struct {
	Name string `validate:"required"`
}

type weatherQuery struct {
	City string `validate:"required"`
}

// historyQuery holds query parameters for the history endpoint. Range is set
// only when both from and to are given.
type historyQuery struct {
	City  string `validate:"required"`
	Range *timeRange
}

type timeRange struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.City = c.Query("city")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" && toStr == "" {
		return nil
	}
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters must be given together")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}
	h.Range = &timeRange{From: from, To: to}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

type historyItem struct {
	FetchID   string                 `json:"fetchId"`
	FetchedAt time.Time              `json:"fetchedAt"`
	Current   weather.ForecastSample `json:"current"`
}
