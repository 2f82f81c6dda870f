package i18n

import (
	"github.com/labstack/echo/v4"
)

const LangKey = "_lang"

// Middleware resolves the request language once and stores it on the context.
func (t *Translator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := t.Resolve(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
			c.Set(LangKey, lang)
			c.Response().Header().Set("Content-Language", lang)
			return next(c)
		}
	}
}

// Lang returns the request language, resolving it when the middleware did
// not run (errors raised before routing, for instance).
func (t *Translator) Lang(c echo.Context) string {
	if lang, ok := c.Get(LangKey).(string); ok && lang != "" {
		return lang
	}
	return t.Resolve(c.QueryParam("lang"), c.Request().Header.Get("Accept-Language"))
}

// Tc translates key in the request language.
func (t *Translator) Tc(c echo.Context, key string, args map[string]any) string {
	return t.T(t.Lang(c), key, args)
}
