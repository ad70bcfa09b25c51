// Package server exposes the optional HTTP status surface: health,
// feed status snapshots and Prometheus metrics. It is read-only; all
// mutations go through the control socket.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"rssd/models"
)

type ServerConfig struct {
	// Version reported on the health endpoint
	Version string

	// Registry provides feed status snapshots
	Registry interface {
		List() []models.FeedStatus
	}
}

// Server returns a fiber.App serving the rssd status endpoints.
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Debug("Request")
		return err
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(map[string]interface{}{
			"status":  "ok",
			"version": config.Version,
		})
	})

	app.Get("/feeds", func(c *fiber.Ctx) error {
		return c.JSON(config.Registry.List())
	})

	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metrics(c.Context())
		return nil
	})

	return app
}
