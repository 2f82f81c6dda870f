package ratelimit

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/config"
	"go.uber.org/fx"
)

const sweepInterval = time.Minute

// Limiter is the configured rate limit middleware for sensitive routes.
type Limiter echo.MiddlewareFunc

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
	fx.Provide(ProvideLimiter),
)

func ProvideRateLimitStore(lc fx.Lifecycle, cfg *config.Config) *MemoryStore {
	store := NewMemoryStore(cfg.RateLimit.Rate, cfg.RateLimit.Period)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go store.runSweeper(ctx, sweepInterval, 2*cfg.RateLimit.Period)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})

	return store
}

func ProvideLimiter(cfg *config.Config, store *MemoryStore) Limiter {
	enabled := cfg.RateLimit.Enabled
	return Limiter(Middleware(&Config{
		Store:   store,
		Skipper: func(echo.Context) bool { return !enabled },
	}))
}
