package httpapi

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-ingest/internal/weather"
)

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context) (weather.RunReport, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. A nil
// metrics handler leaves /metrics unregistered.
func RegisterRoutes(app *fiber.App, runner Runner, metrics http.Handler) {
	api := app.Group("/api")

	// Runs the full two-provider ingestion synchronously.
	api.Get("/update_data", func(c *fiber.Ctx) error {
		report, err := runner.Run(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		tables := report.Tables
		if tables == nil {
			tables = []weather.MergeResult{}
		}
		return c.JSON(fiber.Map{
			"status":   "success",
			"run_id":   report.RunID,
			"tables":   tables,
			"warnings": report.WarningMessages(),
		})
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}
}

// ErrorHandler renders every error as a JSON failure body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
	})
}
