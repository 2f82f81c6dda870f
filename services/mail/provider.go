package mail

import (
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/fx"
)

func ProvideMailer(cfg *config.Config, logger *logging.Service) (Mailer, error) {
	logger = logger.Named("mail")
	if !cfg.Mail.Enabled {
		logger.Warn("mail delivery disabled, messages will only be logged")
		return NewLogMailer(logger), nil
	}
	return NewService(&cfg.Mail, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideMailer),
)
