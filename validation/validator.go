package validation

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/services/users"
)

const specialCharacters = "!@#$%^&*"

// Validator adapts validator/v10 to echo.Validator. Failures come back as
// an apperror validation error, one translatable message per failed rule.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})

	mustRegister(v, "upper", containsRune(unicode.IsUpper))
	mustRegister(v, "lower", containsRune(unicode.IsLower))
	mustRegister(v, "number", containsRune(unicode.IsDigit))
	mustRegister(v, "special", containsRune(func(r rune) bool { return strings.ContainsRune(specialCharacters, r) }))
	mustRegister(v, "alphanumspace", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
				return false
			}
		}
		return true
	})
	mustRegister(v, "role", func(fl validator.FieldLevel) bool {
		return users.Role(fl.Field().String()).Valid()
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return users.Status(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func containsRune(match func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), match) >= 0
	}
}

func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Internal(err)
	}

	messages := make([]apperror.Message, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, messageFor(fe))
	}
	return apperror.Validation(messages)
}

func messageFor(fe validator.FieldError) apperror.Message {
	args := map[string]any{"field": fe.Field()}

	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return apperror.Message{Key: "validation.required", Args: args}
	case "email", "url":
		return apperror.Message{Key: "validation.format", Args: args}
	case "min":
		args["min"] = fe.Param()
		return apperror.Message{Key: "validation.minLength", Args: args}
	case "max":
		args["max"] = fe.Param()
		return apperror.Message{Key: "validation.maxLength", Args: args}
	case "alphanumspace", "alphanum":
		return apperror.Message{Key: "validation.alphanumeric", Args: args}
	case "upper":
		return apperror.Message{Key: "validation.uppercase", Args: args}
	case "lower":
		return apperror.Message{Key: "validation.lowercase", Args: args}
	case "number":
		return apperror.Message{Key: "validation.number", Args: args}
	case "special":
		return apperror.Message{Key: "validation.special_character", Args: args}
	case "eqfield":
		args["other"] = lowerFirst(fe.Param())
		return apperror.Message{Key: "validation.same_as", Args: args}
	case "uuid", "uuid4":
		return apperror.Message{Key: "validation.uuid", Args: args}
	case "role":
		return apperror.Message{Key: "validation.role", Args: args}
	case "status":
		return apperror.Message{Key: "validation.status", Args: args}
	case "oneof":
		args["values"] = strings.ReplaceAll(fe.Param(), " ", ", ")
		return apperror.Message{Key: "validation.one_of", Args: args}
	default:
		return apperror.Message{Key: "validation.invalid", Args: args}
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
