package verification

import (
	"context"
	"time"

	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(StartCleanupWorker),
)

// StartCleanupWorker purges expired tokens periodically for the lifetime of
// the application.
func StartCleanupWorker(lc fx.Lifecycle, cfg *config.Config, svc *Service, logger *logging.Service) {
	interval := cfg.Verification.CleanupPeriod
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				svc.runCleanup(ctx, interval)
			}()
			logger.Info("started verification token cleanup worker", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func (s *Service) runCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.DeleteExpired(ctx); err != nil {
				s.logger.Error("verification cleanup failed", zap.Error(err))
			}
		}
	}
}
