package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/services/users"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100,alphanumspace"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=64,upper,lower,number,special"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Token        string `json:"token" validate:"required"`
	Password     string `json:"password" validate:"required,min=8,max=64,upper,lower,number,special"`
	Confirmation string `json:"confirmation" validate:"required,eqfield=Password"`
}

type TokenRequest struct {
	Token string `json:"token" query:"token" param:"token" validate:"required"`
}

type SocialCallbackRequest struct {
	Code  string `json:"code" query:"code" validate:"required"`
	State string `json:"state" query:"state" validate:"required"`
}

type UserIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

type CreateUserRequest struct {
	Name      string `json:"name" validate:"required,min=3,max=100,alphanumspace"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=64,upper,lower,number,special"`
	Role      string `json:"role" validate:"required,role"`
	Status    string `json:"status" validate:"omitempty,status"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Address   string `json:"address" validate:"omitempty,max=255"`
	BloodType string `json:"bloodType" validate:"omitempty,max=8"`
}

func (r *CreateUserRequest) Input() users.CreateInput {
	return users.CreateInput{
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		Role:      users.Role(r.Role),
		Status:    users.Status(r.Status),
		Phone:     r.Phone,
		Address:   r.Address,
		BloodType: r.BloodType,
	}
}

type UpdateUserRequest struct {
	ID        string  `param:"id" json:"-" validate:"required,uuid"`
	Name      *string `json:"name" validate:"omitempty,min=3,max=100,alphanumspace"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Image     *string `json:"image" validate:"omitempty,max=1024"`
	Role      *string `json:"role" validate:"omitempty,role"`
	Status    *string `json:"status" validate:"omitempty,status"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
	BloodType *string `json:"bloodType" validate:"omitempty,max=8"`
}

func (r *UpdateUserRequest) Input() users.UpdateInput {
	in := users.UpdateInput{
		Name:      r.Name,
		Email:     r.Email,
		Image:     r.Image,
		Phone:     r.Phone,
		Address:   r.Address,
		BloodType: r.BloodType,
	}
	if r.Role != nil {
		role := users.Role(*r.Role)
		in.Role = &role
	}
	if r.Status != nil {
		status := users.Status(*r.Status)
		in.Status = &status
	}
	return in
}

// bind decodes the request into req and runs its validation tags.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperror.BadRequest("error.validation").WithCause(err)
	}
	return c.Validate(req)
}
