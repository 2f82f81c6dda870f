package app

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/server"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until a termination signal or a
// fatal server error, then shuts down gracefully.
func (a *App) Run() error {
	startCtx, cancel := context.WithTimeout(context.Background(), a.fx.StartTimeout())
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return err
	}

	a.logger.Info("application started", zap.String("addr", a.server.Addr()), zap.String("env", a.config.App.Env))

	sig := <-a.fx.Wait()
	a.logger.Info("shutting down", zap.Any("signal", sig.Signal), zap.Int("exit_code", sig.ExitCode))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return err
	}
	return nil
}

func (a *App) Echo() *echo.Echo {
	return a.server.Echo()
}

func (a *App) Server() *server.Server {
	return a.server
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
