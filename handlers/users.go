package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/services/users"
)

type UserHandler struct {
	users *users.Service
}

func NewUserHandler(userService *users.Service) *UserHandler {
	return &UserHandler{users: userService}
}

func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.Request().Context(), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Get(c echo.Context) error {
	var req UserIDRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.FindByID(c.Request().Context(), req.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Update(c echo.Context) error {
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Update(c.Request().Context(), req.ID, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete soft-deletes the user's profiles and returns the user.
func (h *UserHandler) Delete(c echo.Context) error {
	var req UserIDRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.SoftDelete(c.Request().Context(), req.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
