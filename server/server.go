package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/i18n"
	"github.com/tech-arch1tect/edusms/middleware/metrics"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/validation"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service, translator *i18n.Translator, collector *metrics.Collector) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = NewErrorHandler(translator, logger)
	e.IPExtractor = ipExtractor(cfg.Server.TrustedProxies)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.RequestID())
	if cfg.Server.MetricsEnabled && collector != nil {
		e.Use(collector.Middleware())
	}
	e.Use(logging.RequestLogger(logger.Named("access"), "/healthz", "/metrics"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Accept-Language"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}))
	if cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(cfg.Server.RequestTimeout))
	}
	e.Use(translator.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Server.MetricsEnabled && collector != nil {
		e.GET("/metrics", collector.Handler())
	}

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger.Named("server"),
	}
}

func ipExtractor(trusted []string) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}

	opts := make([]echo.TrustOption, 0, len(trusted))
	for _, cidr := range trusted {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			opts = append(opts, echo.TrustIPRange(network))
		}
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
}

func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.Addr()))

	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.GET(path, handler, m...)
}

func (s *Server) Post(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.POST(path, handler, m...)
}

func (s *Server) Patch(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.PATCH(path, handler, m...)
}

func (s *Server) Delete(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.DELETE(path, handler, m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
