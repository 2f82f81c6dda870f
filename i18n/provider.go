package i18n

import (
	"github.com/tech-arch1tect/edusms/config"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewTranslator),
)

func NewTranslator(cfg *config.Config) (*Translator, error) {
	return New(cfg.I18n.Languages, cfg.I18n.Fallback)
}
