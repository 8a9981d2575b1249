// Package middleware holds the fiber middleware stack of the service.
package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"jerseyprint/internal/auth"
	"jerseyprint/internal/config"
	"jerseyprint/internal/infra/logging"
	"jerseyprint/internal/infra/metrics"
)

// APIKeyLocal is the fiber local holding the authenticated admin key.
const APIKeyLocal = "api_key"

// NewStore returns the redis limiter store, or a memory store when redis is
// not configured or unreachable.
func NewStore(redisHost string, db int) (store fiber.Storage) {
	if redisHost == "" {
		return memoryStorage.New()
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			store = memoryStorage.New()
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{redisHost},
		Database: db,
	})
	logging.Info("Using Redis for rate limiting", "addr", redisHost, "db", db)
	return store
}

// Register attaches the global middleware.
func Register(app *fiber.App, cfg config.Config, m *metrics.Metrics, store fiber.Storage, tokens *auth.Cache) {
	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New())

	app.Use(RequestLog(m))

	if cfg.RateLimiter.EnableUserLimiter && cfg.RateLimiter.UserLimit > 0 {
		app.Use(UserRateLimit(cfg.RateLimiter.UserLimit, cfg.RateLimiter.Interval, store, tokens))
	}
}

// RequestLog logs each request and counts its response status.
func RequestLog(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		m.ObserveRequest(c.Method(), status)

		requestID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		logging.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
		)
		return err
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    fiber.StatusTooManyRequests,
			"message": "Too Many Requests",
		},
	})
}
