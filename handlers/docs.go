package handlers

import (
	"net/http"

	"github.com/tech-arch1tect/edusms/openapi"
	"github.com/tech-arch1tect/edusms/server"
	"github.com/tech-arch1tect/edusms/services/auth"
	"github.com/tech-arch1tect/edusms/services/users"
)

const bearer = "bearer"

type linkResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// Docs describes the HTTP API served by RegisterRoutes.
func Docs(appName, appURL string) *openapi.Document {
	doc := openapi.New(appName+" API", "1.0.0").
		Description("Authentication and user management").
		Server(appURL, "").
		Tag("auth", "Registration, sessions and account recovery").
		Tag("users", "User administration for staff").
		BearerAuth(bearer, "Access token, or the refresh token on /auth/refresh-token").
		EnumTag("role", openapi.Enum(users.RoleAdmin, users.RoleTeacher, users.RoleStudent, users.RoleParent)).
		EnumTag("status", openapi.Enum(users.StatusActive, users.StatusInactive))

	doc.Route(http.MethodPost, "/auth/register").Tags("auth").Summary("Register a student account").
		Body(RegisterRequest{}).
		Response(http.StatusCreated, auth.Result{}, "Registered, verification email sent").
		Response(http.StatusConflict, server.ErrorBody{}, "Email already registered").
		Response(http.StatusBadRequest, server.ErrorBody{}, "Validation failed").
		Build()

	doc.Route(http.MethodPost, "/auth/login").Tags("auth").Summary("Sign in with email and password").
		Body(LoginRequest{}).
		Response(http.StatusOK, auth.Result{}, "Token pair").
		Response(http.StatusBadRequest, server.ErrorBody{}, "Invalid credentials").
		Build()

	doc.Route(http.MethodPost, "/auth/logout").Tags("auth").Summary("End the session").
		Security(bearer).
		Response(http.StatusOK, auth.Result{}, "Logged out").
		Build()

	doc.Route(http.MethodGet, "/auth/refresh-token").Tags("auth").Summary("Rotate the token pair").
		Security(bearer).
		Response(http.StatusOK, auth.Result{}, "New token pair").
		Response(http.StatusForbidden, server.ErrorBody{}, "Refresh token not recognised").
		Build()

	doc.Route(http.MethodPost, "/auth/forgot-password").Tags("auth").Summary("Request a password reset email").
		Body(ForgotPasswordRequest{}).
		Response(http.StatusOK, auth.Result{}, "Always succeeds").
		Build()

	doc.Route(http.MethodPost, "/auth/reset-password").Tags("auth").Summary("Set a new password with a reset token").
		Body(ResetPasswordRequest{}).
		Response(http.StatusOK, auth.Result{}, "Password changed").
		Response(http.StatusBadRequest, server.ErrorBody{}, "Invalid token or validation failure").
		Build()

	doc.Route(http.MethodGet, "/auth/reset-token/:token").Tags("auth").Summary("Check a reset token").
		Response(http.StatusOK, auth.Result{}, "Token is valid").
		Response(http.StatusBadRequest, server.ErrorBody{}, "Token invalid, expired or used").
		Build()

	doc.Route(http.MethodPost, "/auth/confirm-email").Tags("auth").Summary("Confirm an email address").
		Body(TokenRequest{}).
		Response(http.StatusOK, auth.Result{}, "Email confirmed").
		Response(http.StatusBadRequest, server.ErrorBody{}, "Token invalid, expired or used").
		Build()

	doc.Route(http.MethodGet, "/auth/confirm-email").Tags("auth").Summary("Confirm an email address from a mail link").
		QueryParam("token", "Verification token", true).
		Response(http.StatusOK, auth.Result{}, "Email confirmed").
		Build()

	doc.Route(http.MethodGet, "/auth/me").Tags("auth").Summary("Current user").
		Security(bearer).
		Response(http.StatusOK, users.User{}, "Authenticated user").
		Response(http.StatusUnauthorized, server.ErrorBody{}, "Missing or invalid access token").
		Build()

	for _, provider := range []string{"google", "facebook"} {
		doc.Route(http.MethodGet, "/auth/"+provider).Tags("auth").Summary("Start "+provider+" sign in").
			QueryParam("redirect", "Set to false to receive the consent URL as JSON", false).
			Response(http.StatusFound, nil, "Redirect to the consent page").
			Response(http.StatusOK, linkResponse{}, "Consent URL").
			Build()

		doc.Route(http.MethodPost, "/auth/"+provider+"/callback").Tags("auth").Summary("Complete "+provider+" sign in").
			Body(SocialCallbackRequest{}).
			Response(http.StatusOK, auth.Result{}, "Token pair").
			Response(http.StatusBadRequest, server.ErrorBody{}, "Invalid state or failed exchange").
			Build()
	}

	doc.Route(http.MethodPost, "/users").Tags("users").Summary("Create a user").
		Security(bearer).
		Body(CreateUserRequest{}).
		Response(http.StatusCreated, users.User{}, "Created user").
		Response(http.StatusForbidden, server.ErrorBody{}, "Caller is not staff").
		Build()

	doc.Route(http.MethodGet, "/users/:id").Tags("users").Summary("Get a user").
		Security(bearer).
		Response(http.StatusOK, users.User{}, "User").
		Response(http.StatusNotFound, server.ErrorBody{}, "No such user").
		Build()

	doc.Route(http.MethodPatch, "/users/:id").Tags("users").Summary("Update a user").
		Security(bearer).
		Body(UpdateUserRequest{}).
		Response(http.StatusOK, users.User{}, "Updated user").
		Build()

	doc.Route(http.MethodDelete, "/users/:id").Tags("users").Summary("Soft delete a user's profiles").
		Security(bearer).
		Response(http.StatusOK, users.User{}, "User with profiles removed").
		Build()

	return doc
}
