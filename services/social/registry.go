package social

import (
	"strings"

	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/services/users"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture"
)

var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(NewStateStore),
)

type Registry struct {
	providers map[users.Provider]Provider
}

func NewRegistry(cfg *config.Config, logger *logging.Service) *Registry {
	r := &Registry{providers: map[users.Provider]Provider{}}

	if cfg.Google.Enabled() {
		r.Register(&oauthProvider{
			name:        users.ProviderGoogle,
			config:      oauthConfig(cfg.Google, endpoints.Google, []string{"openid", "email", "profile"}),
			userInfoURL: googleUserInfoURL,
			parse:       parseGoogleProfile,
		})
	}
	if cfg.Facebook.Enabled() {
		r.Register(&oauthProvider{
			name:        users.ProviderFacebook,
			config:      oauthConfig(cfg.Facebook, endpoints.Facebook, []string{"email", "public_profile"}),
			userInfoURL: facebookUserInfoURL,
			parse:       parseFacebookProfile,
		})
	}

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, string(name))
	}
	logger.Named("social").Info("identity providers configured", zap.Strings("providers", names))

	return r
}

func oauthConfig(cfg config.OAuthConfig, endpoint oauth2.Endpoint, defaultScopes []string) *oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get resolves a provider by name, case-insensitively.
func (r *Registry) Get(name string) (Provider, error) {
	provider := users.Provider(strings.ToUpper(name))
	if !provider.Valid() {
		return nil, ErrUnsupportedProvider
	}
	p, ok := r.providers[provider]
	if !ok {
		return nil, ErrProviderDisabled
	}
	return p, nil
}
