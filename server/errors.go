package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/edusms/apperror"
	"github.com/tech-arch1tect/edusms/i18n"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorBody is the JSON shape of every failed response. Message is a string,
// or a list of strings for validation failures.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// NewErrorHandler renders errors in the request language.
func NewErrorHandler(translator *i18n.Translator, logger *logging.Service) echo.HTTPErrorHandler {
	logger = logger.Named("http")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr := classify(err)
		status := appErr.Status()

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
				zap.String("stack", apperror.StackTrace(err)),
			)
		}

		lang := translator.Lang(c)
		body := ErrorBody{
			StatusCode: status,
			Error:      appErr.ErrorLabel(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}

		if len(appErr.Messages) > 0 {
			messages := make([]string, 0, len(appErr.Messages))
			for _, m := range appErr.Messages {
				messages = append(messages, translator.T(lang, m.Key, m.Args))
			}
			body.Message = messages
		} else {
			body.Message = translator.T(lang, appErr.Key, appErr.Args)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}

// classify turns any error into an *apperror.Error.
func classify(err error) *apperror.Error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Database("error.database_unique", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return apperror.Database("error.database_constraint", err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("error.not_found").WithCause(err)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	return apperror.Internal(err)
}

func fromHTTPError(httpErr *echo.HTTPError) *apperror.Error {
	var e *apperror.Error
	switch httpErr.Code {
	case http.StatusNotFound:
		e = apperror.NotFound("error.not_found")
	case http.StatusMethodNotAllowed:
		e = apperror.MethodNotAllowed("error.method_not_allowed")
	case http.StatusUnauthorized:
		e = apperror.Unauthorized("error.unauthorized")
	case http.StatusForbidden:
		e = apperror.Forbidden("error.forbidden_role")
	case http.StatusTooManyRequests:
		e = apperror.TooManyRequests("error.too_many_requests")
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		e = apperror.BadRequest("error.validation")
	case http.StatusServiceUnavailable:
		e = apperror.Unavailable("error.service_unavailable")
	default:
		if httpErr.Code >= http.StatusInternalServerError {
			return apperror.Internal(httpErr)
		}
		e = apperror.BadRequest("error.validation")
	}
	return e.WithCause(httpErr)
}
