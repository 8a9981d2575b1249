package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"jerseyprint/internal/auth"
	"jerseyprint/internal/infra/logging"
)

const apiKeyHeader = "X-API-Key"

// AdminAuth requires a known X-API-Key.
func AdminAuth(tokens *auth.Cache) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + apiKeyHeader,
		ContextKey: APIKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if tokens == nil {
				return false, auth.ErrTokenStoreNotReady
			}
			if err := tokens.Validate(key); err != nil {
				return false, err
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may call the handler with a nil error.
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			status := fiber.StatusUnauthorized
			if errors.Is(err, auth.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			logging.Warn("Admin authentication failed", "path", c.Path(), "status", status, "error", err)
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}

// LimiterCache keeps one limiter per distinct token limit.
type LimiterCache struct {
	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

func NewLimiterCache() *LimiterCache {
	return &LimiterCache{handlers: make(map[int]fiber.Handler)}
}

func (lc *LimiterCache) get(limit int, build func() fiber.Handler) fiber.Handler {
	lc.mu.RLock()
	h, ok := lc.handlers[limit]
	lc.mu.RUnlock()
	if ok {
		return h
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if h, ok := lc.handlers[limit]; ok {
		return h
	}
	h = build()
	lc.handlers[limit] = h
	return h
}

// TokenRateLimit applies the per-key limit of authenticated admin requests.
// A limit of 0 is unlimited.
func TokenRateLimit(tokens *auth.Cache, interval time.Duration, store fiber.Storage, cache *LimiterCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(APIKeyLocal).(string)
		if !ok || token == "" || tokens == nil {
			return c.Next()
		}
		limit := tokens.RateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		h := cache.get(limit, func() fiber.Handler {
			return limiter.New(limiter.Config{
				Max:               limit,
				Expiration:        interval,
				LimiterMiddleware: limiter.SlidingWindow{},
				Storage:           store,
				KeyGenerator: func(c *fiber.Ctx) string {
					token, _ := c.Locals(APIKeyLocal).(string)
					return "token:" + token
				},
				LimitReached: func(c *fiber.Ctx) error {
					token, _ := c.Locals(APIKeyLocal).(string)
					logging.Warn("Rate limit exceeded", "token", token, "path", c.Path())
					return tooManyRequests(c)
				},
			})
		})
		return h(c)
	}
}

// UserRateLimit limits anonymous clients by IP and user agent. Requests
// carrying an admin key that tokens accepts skip it.
func UserRateLimit(limit int, interval time.Duration, store fiber.Storage, tokens *auth.Cache) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	clientKey := func(c *fiber.Ctx) string {
		sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
		return "user:" + hex.EncodeToString(sum[:])
	}
	h := limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator:      clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", clientKey(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return func(c *fiber.Ctx) error {
		if key := c.Get(apiKeyHeader); key != "" && tokens != nil && tokens.Validate(key) == nil {
			return c.Next()
		}
		return h(c)
	}
}
