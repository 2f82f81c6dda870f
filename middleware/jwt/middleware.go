package jwt

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/services/jwt"
)

const (
	UserIDKey       = "_jwt_user_id"
	ClaimsKey       = "_jwt_claims"
	RefreshTokenKey = "_jwt_refresh_token"
)

type validateFunc func(ctx context.Context, token string) (*jwt.Claims, error)

// RequireJWT guards a route with an access token.
func RequireJWT(jwtService *jwt.Service) echo.MiddlewareFunc {
	return guard(jwtService.ValidateAccessToken, tokenError, false)
}

// RequireRefreshJWT guards a route with a refresh token and keeps the raw
// token for the handler, which must compare it with the stored digest. A
// presented token that fails validation is denied with 403, the same answer
// the handler gives for a token that no longer matches.
func RequireRefreshJWT(jwtService *jwt.Service) echo.MiddlewareFunc {
	return guard(func(_ context.Context, token string) (*jwt.Claims, error) {
		return jwtService.ValidateRefreshToken(token)
	}, refreshTokenError, true)
}

func guard(validate validateFunc, deny func(error) error, keepRaw bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := validate(c.Request().Context(), tokenString)
			if err != nil {
				return deny(err)
			}
			if claims.UserID == "" {
				return deny(jwt.ErrInvalidToken)
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(ClaimsKey, claims)
			if keepRaw {
				c.Set(RefreshTokenKey, tokenString)
			}

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", apperror.Unauthorized("error.unauthorized")
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", apperror.Unauthorized("error.unauthorized")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperror.Unauthorized("error.unauthorized")
	}
	return token, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return apperror.Unauthorized("error.token_expired").WithCause(err)
	case errors.Is(err, jwt.ErrTokenRevoked):
		return apperror.Unauthorized("error.unauthorized").WithCause(err)
	default:
		return apperror.Unauthorized("error.invalid_token").WithCause(err)
	}
}

func refreshTokenError(err error) error {
	return apperror.Forbidden("error.access_denied").WithCause(err)
}

func GetUserID(c echo.Context) string {
	if userID, ok := c.Get(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

func GetRefreshToken(c echo.Context) string {
	if token, ok := c.Get(RefreshTokenKey).(string); ok {
		return token
	}
	return ""
}
