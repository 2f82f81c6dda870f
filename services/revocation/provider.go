package revocation

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/jwt"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OptionalDB struct {
	fx.In
	DB *gorm.DB `optional:"true"`
}

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service, optDB OptionalDB) (Store, error) {
	if !cfg.Revocation.Enabled {
		logger.Debug("JWT revocation store disabled in configuration")
		return nil, nil
	}

	logger = logger.Named("revocation")

	switch cfg.Revocation.Store {
	case "memory":
		if optDB.DB == nil {
			logger.Info("memory-only revocation store initialized (no database available)")
			return NewMemoryStore(logger), nil
		}

		if err := optDB.DB.AutoMigrate(&RevokedToken{}); err != nil {
			logger.Error("failed to migrate revoked tokens table - falling back to memory-only store", zap.Error(err))
			return NewMemoryStore(logger), nil
		}

		store := NewMemoryStoreWithDB(optDB.DB, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return store.LoadFromDatabase(ctx)
			},
		})
		return store, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := NewRedisStore(client, cfg.Redis.Prefix, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := store.Ping(ctx); err != nil {
					return fmt.Errorf("redis revocation store unreachable: %w", err)
				}
				logger.Info("redis revocation store connected", zap.String("addr", cfg.Redis.Addr))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported revocation store type: %s", cfg.Revocation.Store)
	}
}

func ProvideRevocationService(cfg *config.Config, logger *logging.Service, store Store) *Service {
	if !cfg.Revocation.Enabled || store == nil {
		return nil
	}
	return NewService(store, logger.Named("revocation"))
}

// ProvideRevocationAsJWTInterface returns a nil interface when revocation is
// off so the JWT service skips the check.
func ProvideRevocationAsJWTInterface(svc *Service) jwt.RevocationService {
	if svc == nil {
		return nil
	}
	return svc
}

func StartCleanupWorker(lc fx.Lifecycle, cfg *config.Config, svc *Service) {
	if svc == nil || cfg.Revocation.CleanupPeriod <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go svc.RunCleanup(ctx, cfg.Revocation.CleanupPeriod)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRevocationService),
	fx.Provide(ProvideRevocationAsJWTInterface),
	fx.Invoke(StartCleanupWorker),
)
