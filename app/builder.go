package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/database"
	"github.com/tech-arch1tect/edusms/handlers"
	"github.com/tech-arch1tect/edusms/i18n"
	"github.com/tech-arch1tect/edusms/middleware/metrics"
	"github.com/tech-arch1tect/edusms/middleware/ratelimit"
	"github.com/tech-arch1tect/edusms/server"
	"github.com/tech-arch1tect/edusms/services/auth"
	"github.com/tech-arch1tect/edusms/services/hasher"
	"github.com/tech-arch1tect/edusms/services/jwt"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/services/mail"
	"github.com/tech-arch1tect/edusms/services/notification"
	"github.com/tech-arch1tect/edusms/services/revocation"
	"github.com/tech-arch1tect/edusms/services/social"
	"github.com/tech-arch1tect/edusms/services/users"
	"github.com/tech-arch1tect/edusms/services/verification"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	models    []any
	fxOptions []fx.Option
	quiet     bool
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.errors = append(b.errors, errors.New("config cannot be nil"))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.errors = append(b.errors, fmt.Errorf("failed to load config: %w", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels migrates extra models alongside the built-in tables.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

// Quiet silences fx's own lifecycle logging.
func (b *AppBuilder) Quiet() *AppBuilder {
	b.quiet = true
	return b
}

// Models lists every table the application owns.
func Models() []any {
	models := users.Models()
	return append(models, &verification.VerificationToken{}, &revocation.RevokedToken{})
}

func (b *AppBuilder) Build() (*App, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}

	if b.config == nil {
		b.WithAutoConfig()
		if len(b.errors) > 0 {
			return nil, errors.Join(b.errors...)
		}
	}

	app := &App{config: b.config}

	options := []fx.Option{
		config.NewProvider(b.config),
		logging.Module,
		fx.Supply(database.WithModels(append(Models(), b.models...)...)),
		database.Module,
		hasher.Module,
		users.Module,
		verification.Module,
		jwt.Module,
		revocation.Module,
		mail.Module,
		notification.Module,
		social.Module,
		auth.Module,
		i18n.Module,
		metrics.Module,
		ratelimit.Module,
		server.NewProvider(),
		handlers.Module,
		fx.Populate(&app.logger, &app.db, &app.server),
	}

	if b.quiet {
		options = append(options, fx.NopLogger)
	} else {
		options = append(options, fx.WithLogger(func(logger *logging.Service) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger.Logger().Named("fx")}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}))
	}

	options = append(options, b.fxOptions...)

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// DB is exposed for tooling that needs the connection outside a request.
func (a *App) DB() *gorm.DB {
	return a.db
}
