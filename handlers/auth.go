package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/i18n"
	jwtmw "github.com/tech-arch1tect/edusms/middleware/jwt"
	"github.com/tech-arch1tect/edusms/services/auth"
	"github.com/tech-arch1tect/edusms/services/logging"
	"github.com/tech-arch1tect/edusms/services/social"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth       *auth.Service
	providers  *social.Registry
	states     *social.StateStore
	translator *i18n.Translator
	logger     *logging.Service
}

func NewAuthHandler(
	authService *auth.Service,
	providers *social.Registry,
	states *social.StateStore,
	translator *i18n.Translator,
	logger *logging.Service,
) *AuthHandler {
	return &AuthHandler{
		auth:       authService,
		providers:  providers,
		states:     states,
		translator: translator,
		logger:     logger.Named("handlers.auth"),
	}
}

func (h *AuthHandler) respond(c echo.Context, status int, res *auth.Result) error {
	out := *res
	out.Message = h.translator.Tc(c, res.Message, nil)
	return c.JSON(status, out)
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Register(c.Request().Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusCreated, res)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	res, err := h.auth.Logout(c.Request().Context(), jwtmw.GetUserID(c), jwtmw.GetClaims(c))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	res, err := h.auth.Refresh(c.Request().Context(), jwtmw.GetUserID(c), jwtmw.GetRefreshToken(c))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.ResetPassword(c.Request().Context(), auth.ResetPasswordInput{
		Email:    req.Email,
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHandler) VerifyResetToken(c echo.Context) error {
	var req TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.VerifyResetToken(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

// ConfirmEmail accepts the token in the body or, for mail links, the query.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	var req TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.ConfirmEmail(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.auth.Me(c.Request().Context(), jwtmw.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// SocialStart redirects to the provider consent page. With ?redirect=false
// the URL is returned as JSON for clients that navigate themselves.
func (h *AuthHandler) SocialStart(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		provider, err := h.provider(name)
		if err != nil {
			return err
		}

		state, err := h.states.Issue()
		if err != nil {
			return apperror.Internal(err)
		}

		url := provider.AuthCodeURL(state)
		if c.QueryParam("redirect") == "false" {
			return c.JSON(http.StatusOK, map[string]string{"url": url, "state": state})
		}
		return c.Redirect(http.StatusFound, url)
	}
}

func (h *AuthHandler) SocialCallback(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		provider, err := h.provider(name)
		if err != nil {
			return err
		}

		var req SocialCallbackRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		if !h.states.Consume(req.State) {
			return apperror.BadRequest("error.invalid_state")
		}

		identity, err := provider.Exchange(c.Request().Context(), req.Code)
		if err != nil {
			h.logger.Warn("social exchange failed", zap.String("provider", name), zap.Error(err))
			return apperror.BadRequest("error.social_exchange_failed").
				WithArgs(map[string]any{"provider": name}).
				WithCause(err)
		}

		res, err := h.auth.HandleAuth(c.Request().Context(), identity)
		if err != nil {
			return err
		}
		return h.respond(c, http.StatusOK, res)
	}
}

func (h *AuthHandler) provider(name string) (social.Provider, error) {
	provider, err := h.providers.Get(name)
	if err != nil {
		if errors.Is(err, social.ErrProviderDisabled) || errors.Is(err, social.ErrUnsupportedProvider) {
			return nil, apperror.BadRequest("error.provider_unsupported").
				WithArgs(map[string]any{"provider": name}).
				WithCause(err)
		}
		return nil, err
	}
	return provider, nil
}
