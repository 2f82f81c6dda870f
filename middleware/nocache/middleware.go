package nocache

import (
	"github.com/labstack/echo/v4"
)

// Middleware marks responses as uncacheable. Auth and user responses carry
// tokens and personal data.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
			h.Set("Surrogate-Control", "no-store")
			return next(c)
		}
	}
}
