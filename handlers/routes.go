package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/middleware/nocache"
	"github.com/tech-arch1tect/edusms/middleware/ratelimit"
	"github.com/tech-arch1tect/edusms/middleware/roles"
	"github.com/tech-arch1tect/edusms/server"
	"github.com/tech-arch1tect/edusms/services/jwt"
	"github.com/tech-arch1tect/edusms/services/users"
	"go.uber.org/fx"

	jwtmw "github.com/tech-arch1tect/edusms/middleware/jwt"
)

var Module = fx.Options(
	fx.Provide(NewAuthHandler),
	fx.Provide(NewUserHandler),
	fx.Invoke(RegisterRoutes),
)

type RouteParams struct {
	fx.In

	Config  *config.Config
	Server  *server.Server
	Auth    *AuthHandler
	Users   *UserHandler
	JWT     *jwt.Service
	Lookup  *users.Service
	Limiter ratelimit.Limiter
}

func RegisterRoutes(p RouteParams) {
	requireJWT := jwtmw.RequireJWT(p.JWT)
	requireRefresh := jwtmw.RequireRefreshJWT(p.JWT)
	limit := echo.MiddlewareFunc(p.Limiter)

	a := p.Server.Group("/auth", nocache.Middleware())
	a.POST("/register", p.Auth.Register, limit)
	a.POST("/login", p.Auth.Login, limit)
	a.POST("/logout", p.Auth.Logout, requireJWT)
	a.GET("/refresh-token", p.Auth.Refresh, requireRefresh)
	a.POST("/forgot-password", p.Auth.ForgotPassword, limit)
	a.POST("/reset-password", p.Auth.ResetPassword, limit)
	a.GET("/reset-token/:token", p.Auth.VerifyResetToken)
	a.POST("/confirm-email", p.Auth.ConfirmEmail)
	a.GET("/confirm-email", p.Auth.ConfirmEmail)
	a.GET("/me", p.Auth.Me, requireJWT)

	for _, provider := range []users.Provider{users.ProviderGoogle, users.ProviderFacebook} {
		name := strings.ToLower(string(provider))
		a.GET("/"+name, p.Auth.SocialStart(name))
		a.POST("/"+name+"/callback", p.Auth.SocialCallback(name), limit)
		a.GET("/"+name+"/callback", p.Auth.SocialCallback(name), limit)
	}

	staff := roles.RequireRoles(p.Lookup, users.RoleAdmin, users.RoleTeacher)
	u := p.Server.Group("/users", nocache.Middleware(), requireJWT, staff)
	u.POST("", p.Users.Create)
	u.GET("/:id", p.Users.Get)
	u.PATCH("/:id", p.Users.Update)
	u.DELETE("/:id", p.Users.Delete)

	if p.Config != nil && p.Config.App.Env == "dev" {
		doc := Docs(p.Config.App.Name, p.Config.App.URL)
		p.Server.Get("/docs/openapi.json", doc.JSONHandler())
		p.Server.Get("/docs/openapi.yaml", doc.YAMLHandler())
	}
}
