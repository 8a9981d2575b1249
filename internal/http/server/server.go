// Package server assembles the fiber application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	memoryStorage "github.com/gofiber/storage/memory/v2"

	"jerseyprint/internal/auth"
	"jerseyprint/internal/config"
	"jerseyprint/internal/http/handlers"
	"jerseyprint/internal/http/middleware"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/infra/metrics"
	"jerseyprint/internal/infra/objectstore"
)

// Deps are the collaborators behind the routes. Nil handler groups answer 503.
type Deps struct {
	Config       config.Config
	Tokens       *auth.Cache
	Metrics      *metrics.Metrics
	LimiterStore fiber.Storage

	Render  *handlers.Render
	Catalog *handlers.Catalog
	Orders  *handlers.Orders

	// FilesRoot is published under /files when set.
	FilesRoot string
}

// New creates and configures the fiber app.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit(d.Config.Limits.MaxUploadBytes),
		ErrorHandler:          errorHandler,
	})

	if d.LimiterStore == nil {
		d.LimiterStore = memoryStorage.New()
	}
	if d.Render == nil {
		d.Render = &handlers.Render{Metrics: d.Metrics}
	}
	if d.Catalog == nil {
		d.Catalog = &handlers.Catalog{}
	}
	if d.Orders == nil {
		d.Orders = &handlers.Orders{}
	}

	middleware.Register(app, d.Config, d.Metrics, d.LimiterStore, d.Tokens)
	if d.FilesRoot != "" {
		app.Static(objectstore.PublicPrefix, d.FilesRoot, fiber.Static{Browse: false})
	}
	registerRoutes(app, d)

	// JSON 404 for everything unmatched
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})
	return app
}

func registerRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/v1")

	admin := []fiber.Handler{
		middleware.AdminAuth(d.Tokens),
		middleware.TokenRateLimit(d.Tokens, d.Config.RateLimiter.Interval, d.LimiterStore, middleware.NewLimiterCache()),
	}
	withAdmin := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, admin...), h)
	}

	v1.Get("/products", d.Catalog.ListProducts)
	v1.Get("/products/:id", d.Catalog.GetProduct)
	v1.Post("/products", withAdmin(d.Catalog.CreateProduct)...)

	v1.Get("/stores", withAdmin(d.Catalog.ListStores)...)
	v1.Put("/stores/:name", withAdmin(d.Catalog.PutStore)...)

	v1.Post("/render/png", d.Render.PNG)
	v1.Post("/render/template", d.Render.Template)
	v1.Post("/render/composite", d.Render.Composite)
	v1.Get("/render/layout", d.Render.Layout)

	v1.Post("/orders", d.Orders.Create)
	v1.Get("/orders/:id", d.Orders.Get)
	v1.Get("/orders/:id/qr", d.Orders.QR)

	if d.Metrics != nil {
		v1.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}
	v1.Get("/monitor", withAdmin(monitor.New())...)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}

// bodyLimit leaves room for both product photos and the form fields.
func bodyLimit(maxUpload int) int {
	if maxUpload <= 0 {
		return fiber.DefaultBodyLimit
	}
	return 2*maxUpload + 1<<20
}
