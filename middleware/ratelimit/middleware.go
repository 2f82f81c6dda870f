package ratelimit

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/apperror"
)

type Config struct {
	Store          Store
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Skipper        func(c echo.Context) bool
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(0, 0)
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			d := cfg.Store.Allow(cfg.KeyGenerator(c))

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				return cfg.OnLimitReached(c)
			}
			return next(c)
		}
	}
}

// DefaultKeyGenerator buckets by client IP and route, so one noisy endpoint
// does not lock a client out of the others.
func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return "rate_limit:" + realIP + ":" + c.Path()
}

func DefaultOnLimitReached(c echo.Context) error {
	return apperror.TooManyRequests("error.too_many_requests")
}
