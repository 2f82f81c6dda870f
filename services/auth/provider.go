package auth

import (
	"github.com/tech-arch1tect/edusms/services/notification"
	"go.uber.org/fx"
)

func ProvideNotifier(n *notification.Service) Notifier {
	return n
}

var Module = fx.Options(
	fx.Provide(ProvideNotifier),
	fx.Provide(NewService),
)
