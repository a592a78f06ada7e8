package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-publisher/internal/store"
	"github.com/i474232898/weather-publisher/internal/uploader"
	"github.com/i474232898/weather-publisher/internal/weather"
)

var validate = validator.New()

// StatsSource reports upload worker counters.
type StatsSource interface {
	Stats() uploader.Stats
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, workers ...StatsSource) {
	v1 := app.Group("/api/v1")

	// New archive record: archived, then queued for every uploader.
	v1.Post("/records", func(c *fiber.Ctx) error {
		var req recordRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec := req.toRecord()
		if err := service.AddRecord(rec); err != nil {
			if errors.Is(err, weather.ErrNoTimestamp) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to archive record")
		}

		ts, _ := rec.Time()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"accepted": true,
			"time":     ts,
			"fields":   len(rec) - 1,
		})
	})

	v1.Get("/records/latest", func(c *fiber.Ctx) error {
		rec, err := service.GetLatest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no archived records")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read archive")
		}
		return c.JSON(rec)
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		stats := make([]uploader.Stats, 0, len(workers))
		for _, w := range workers {
			stats = append(stats, w.Stats())
		}
		return c.JSON(fiber.Map{
			"uploaders": stats,
		})
	})
}

// recordRequest is an archive record as posted by a station driver:
// a flat object of field name to number, nulls meaning "no value".
type recordRequest struct {
	Time   *float64 `validate:"required,gt=0"`
	Values map[string]*float64
}

func (r *recordRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(&r.Values); err != nil {
		return errors.New("body must be a JSON object of numeric fields")
	}
	r.Time = r.Values[weather.FieldTime]
	return nil
}

func (r recordRequest) toRecord() weather.Record {
	rec := make(weather.Record, len(r.Values))
	for k, v := range r.Values {
		if v != nil {
			rec[k] = *v
		}
	}
	return rec
}
