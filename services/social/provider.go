package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tech-arch1tect/edusms/services/users"
	"golang.org/x/oauth2"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported identity provider")
	ErrProviderDisabled    = errors.New("identity provider not configured")
	ErrExchangeFailed      = errors.New("identity exchange failed")
	ErrMissingEmail        = errors.New("identity provider returned no email")
	ErrUnverifiedEmail     = errors.New("identity provider has not verified the email")
)

// Identity is what the orchestrator needs from a provider: nothing else
// from the provider profile is trusted.
type Identity struct {
	Provider  users.Provider
	AccountID string
	Email     string
	Name      string
	Image     string

	// EmailVerified is the provider's claim that the address belongs to the account.
	EmailVerified bool
}

type Provider interface {
	Name() users.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

type profileParser func(body []byte) (*Identity, error)

type oauthProvider struct {
	name        users.Provider
	config      *oauth2.Config
	userInfoURL string
	parse       profileParser
}

func (p *oauthProvider) Name() users.Provider {
	return p.name
}

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s token: %v", ErrExchangeFailed, p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s profile: %v", ErrExchangeFailed, p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %s profile: %v", ErrExchangeFailed, p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s profile returned %d", ErrExchangeFailed, p.name, resp.StatusCode)
	}

	identity, err := p.parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s profile: %v", ErrExchangeFailed, p.name, err)
	}

	identity.Provider = p.name
	identity.Email = strings.ToLower(strings.TrimSpace(identity.Email))
	if identity.Email == "" {
		return nil, ErrMissingEmail
	}
	if !identity.EmailVerified {
		return nil, fmt.Errorf("%w: %s", ErrUnverifiedEmail, identity.Email)
	}
	if identity.AccountID == "" {
		return nil, fmt.Errorf("%w: %s profile has no id", ErrExchangeFailed, p.name)
	}

	return identity, nil
}

func parseGoogleProfile(body []byte) (*Identity, error) {
	var profile struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	return &Identity{
		AccountID:     profile.Sub,
		Email:         profile.Email,
		Name:          profile.Name,
		Image:         profile.Picture,
		EmailVerified: profile.EmailVerified,
	}, nil
}

func parseFacebookProfile(body []byte) (*Identity, error) {
	var profile struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	// the Graph API only exposes confirmed emails
	return &Identity{
		AccountID:     profile.ID,
		Email:         profile.Email,
		Name:          profile.Name,
		Image:         profile.Picture.Data.URL,
		EmailVerified: true,
	}, nil
}
