package httpapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"chanfeed/internal/metrics"
)

// newRequestLogger logs each request as structured JSON via zerolog.
func newRequestLogger(log zerolog.Logger) fiber.Handler {
	log = log.With().Str("component", "http").Logger()
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		evt := log.Info()
		if status >= 500 {
			evt = log.Error()
		} else if status >= 400 {
			evt = log.Warn()
		}

		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration_ms", duration).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}

// newCORS allows the configured origins, or every origin when none are set.
func newCORS(origins []string) fiber.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodDelete,
			fiber.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		MaxAge: 86400,
	})
}

// metricsMiddleware records request duration and in-flight count.
func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Fiber strings are backed by the fasthttp buffer; copy before Next.
		method := string([]byte(c.Method()))

		m.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		endpoint := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			endpoint = string([]byte(r.Path))
		}
		status := strconv.Itoa(c.Response().StatusCode())

		m.ObserveRequest(endpoint, method, status, time.Since(start))
		m.RequestsInFlight.Dec()

		return err
	}
}

// metricsHandler serves the Prometheus registry via Fiber.
func metricsHandler(m *metrics.Metrics) fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{}))
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
