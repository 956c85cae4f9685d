// Package httpapi exposes the feed service over HTTP.
package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"

	"chanfeed/internal/metrics"
	"chanfeed/internal/publish"
	"chanfeed/internal/storage"
)

// Service is the application surface the handlers call.
type Service interface {
	ListChannels() []storage.Channel
	AddChannel(ctx context.Context, input string) (storage.Channel, error)
	RemoveChannel(id string) error
	Videos() ([]storage.Video, error)
	Publish(ctx context.Context, days int) (*publish.Report, error)
	FetchOnly(ctx context.Context, days int) (*publish.Report, error)
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	// Development adds internal error text to error responses.
	Development bool
	// DefaultDays is used when a fetch or deploy request omits days.
	DefaultDays int
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
}

// New creates a Fiber app with every route registered.
func New(svc Service, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "chanfeed",
		ErrorHandler: errorHandler(opts.Development),
	})
	Setup(app, svc, opts)
	return app
}

// Setup configures the middleware stack and all routes on app.
func Setup(app *fiber.App, svc Service, opts Options) {
	if opts.DefaultDays == 0 {
		opts.DefaultDays = 7
	}
	h := &handlers{svc: svc, opts: opts}

	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(newRequestLogger(opts.Logger))
	if opts.Metrics != nil {
		app.Use(metricsMiddleware(opts.Metrics))
	}
	app.Use(newCORS(opts.CORSOrigins))

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if opts.Metrics != nil {
		app.Get("/metrics", metricsHandler(opts.Metrics))
	}

	api := app.Group("/api")

	api.Get("/channels", h.listChannels)
	api.Post("/channels", h.addChannel)
	api.Delete("/channels/:id", h.removeChannel)

	api.Get("/videos", h.listVideos)

	api.Post("/fetch", h.fetch)
	api.Post("/deploy", h.deploy)
}
