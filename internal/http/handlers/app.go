package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"krishighor/internal/config"
	applog "krishighor/internal/log"
)

// ErrorHandler answers unhandled errors with JSON and hides internals on 5xx.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := "Something went wrong. Please try again."
	if code < fiber.StatusInternalServerError && fe != nil {
		msg = fe.Message
	}
	applog.Error(c, "server.error", err, map[string]any{"status": code})
	return c.Status(code).JSON(fiber.Map{"success": false, "error": msg})
}

// NewApp builds the HTTP surface with middleware and routes attached.
func NewApp(cfg config.Config, deps *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "krishighor",
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz"
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Warn(c, "rate.limit.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "error": "rate limit exceeded, retry soon"})
			},
		}))
	}

	Register(app, deps)
	return app
}

// Register attaches the API routes. The invoice route is registered ahead
// of the per-user history route so "invoice" is not taken as a user id.
func Register(app *fiber.App, deps *Deps) {
	api := app.Group("/api")
	api.Get("/crops", deps.CropHandler.List)
	api.Post("/recommendations", deps.RecommendationHandler.Recommend)
	api.Post("/orders", deps.OrderHandler.Create)
	api.Get("/orders/invoice/:order_id", deps.OrderHandler.Invoice)
	api.Get("/orders/:user_id", deps.OrderHandler.History)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Not found"})
	})
}
