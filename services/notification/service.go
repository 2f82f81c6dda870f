package notification

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/services/mail"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"

	verificationPath  = "/auth/new-verification"
	passwordResetPath = "/auth/new-password"
)

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(registerDrain),
)

// Service delivers account emails. Delivery failures are logged and never
// reach the caller.
type Service struct {
	config *config.Config
	mailer mail.Mailer
	logger *logging.Service
	wg     sync.WaitGroup
}

func NewService(cfg *config.Config, mailer mail.Mailer, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		mailer: mailer,
		logger: logger.Named("notification"),
	}
}

func (s *Service) SendVerification(ctx context.Context, email, token string) {
	s.dispatch(ctx, TemplateVerification, email, "Confirm your email", map[string]any{
		"AppName":   s.config.App.Name,
		"Link":      s.link(verificationPath, token),
		"ExpiresIn": humanize(s.config.Verification.EmailExpiry),
	})
}

func (s *Service) SendPasswordReset(ctx context.Context, email, token string, expiresIn time.Duration) {
	s.dispatch(ctx, TemplatePasswordReset, email, "Reset your password", map[string]any{
		"AppName":   s.config.App.Name,
		"Link":      s.link(passwordResetPath, token),
		"ExpiresIn": humanize(expiresIn),
	})
}

// Wait blocks until in-flight asynchronous sends have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) dispatch(ctx context.Context, templateName, email, subject string, data map[string]any) {
	// detached so a client disconnect does not cancel delivery
	base := context.WithoutCancel(ctx)

	send := func() {
		sendCtx, cancel := context.WithTimeout(base, s.timeout())
		defer cancel()

		if err := s.mailer.SendTemplate(sendCtx, templateName, []string{email}, subject, data); err != nil {
			s.logger.Error("failed to send notification",
				zap.String("template", templateName),
				zap.String("email", email),
				zap.Error(err))
			return
		}
		s.logger.Debug("notification sent", zap.String("template", templateName), zap.String("email", email))
	}

	if !s.config.Mail.Async {
		send()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		send()
	}()
}

func (s *Service) timeout() time.Duration {
	if s.config.Mail.SendTimeout > 0 {
		return s.config.Mail.SendTimeout
	}
	return 10 * time.Second
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.config.App.URL, "/") + path + "?token=" + url.QueryEscape(token)
}

func humanize(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func registerDrain(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				s.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				s.logger.Warn("shutdown before pending notifications were sent")
			}
			return nil
		},
	})
}
