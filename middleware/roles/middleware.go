package roles

import (
	"context"
	"errors"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/apperror"
	jwtmw "github.com/tech-arch1tect/edusms/middleware/jwt"
	"github.com/tech-arch1tect/edusms/services/users"
)

const UserKey = "_roles_user"

// UserLookup loads the authenticated user by id.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// RequireRoles must run after jwt.RequireJWT. It loads the caller and lets
// the request through only when the caller holds one of roles.
func RequireRoles(lookup UserLookup, roles ...users.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := jwtmw.GetUserID(c)
			if userID == "" {
				return apperror.Unauthorized("error.unauthorized")
			}

			user, err := lookup.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, users.ErrUserNotFound) {
					return apperror.Unauthorized("error.unauthorized").WithCause(err)
				}
				return err
			}

			if !slices.Contains(roles, user.Role) {
				return apperror.Forbidden("error.forbidden_role")
			}

			c.Set(UserKey, user)
			return next(c)
		}
	}
}

func GetUser(c echo.Context) *users.User {
	if user, ok := c.Get(UserKey).(*users.User); ok {
		return user
	}
	return nil
}
