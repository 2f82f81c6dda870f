package roles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edusms/apperror"
	jwtmw "github.com/tech-arch1tect/edusms/middleware/jwt"
	"github.com/tech-arch1tect/edusms/services/users"
)

type stubLookup map[string]*users.User

func (s stubLookup) FindByID(_ context.Context, id string) (*users.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("error.user_not_found").WithCause(users.ErrUserNotFound)
}

func run(mw echo.MiddlewareFunc, userID string) (echo.Context, error) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users/1", nil), httptest.NewRecorder())
	if userID != "" {
		c.Set(jwtmw.UserIDKey, userID)
	}
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return c, err
}

func TestRequireRoles(t *testing.T) {
	lookup := stubLookup{
		"admin":   {ID: "admin", Role: users.RoleAdmin},
		"teacher": {ID: "teacher", Role: users.RoleTeacher},
		"student": {ID: "student", Role: users.RoleStudent},
	}
	mw := RequireRoles(lookup, users.RoleAdmin, users.RoleTeacher)

	t.Run("allowed roles pass", func(t *testing.T) {
		for _, id := range []string{"admin", "teacher"} {
			c, err := run(mw, id)
			require.NoError(t, err)
			require.NotNil(t, GetUser(c))
			assert.Equal(t, id, GetUser(c).ID)
		}
	})

	t.Run("other roles are forbidden", func(t *testing.T) {
		_, err := run(mw, "student")
		assert.True(t, apperror.Is(err, apperror.KindForbidden, "error.forbidden_role"))
	})

	t.Run("no authenticated user", func(t *testing.T) {
		_, err := run(mw, "")
		assert.True(t, apperror.Is(err, apperror.KindUnauthorized, "error.unauthorized"))
	})

	t.Run("user deleted since the token was issued", func(t *testing.T) {
		_, err := run(mw, "ghost")
		assert.True(t, apperror.Is(err, apperror.KindUnauthorized, "error.unauthorized"))
	})
}
