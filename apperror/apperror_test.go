package apperror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		label  string
	}{
		{BadRequest("k"), http.StatusBadRequest, "Bad Request"},
		{Unauthorized("k"), http.StatusUnauthorized, "Unauthorized"},
		{Forbidden("k"), http.StatusForbidden, "Forbidden"},
		{NotFound("k"), http.StatusNotFound, "Not Found"},
		{Conflict("k"), http.StatusConflict, "Conflict"},
		{TooManyRequests("k"), http.StatusTooManyRequests, "Too Many Requests"},
		{Internal(errors.New("boom")), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status())
			assert.Equal(t, tt.label, tt.err.ErrorLabel())
		})
	}
}

func TestDatabaseLabel(t *testing.T) {
	err := Database("error.database_unique", errors.New("duplicated key"))

	assert.Equal(t, http.StatusBadRequest, err.Status())
	assert.Equal(t, "Database Error", err.ErrorLabel())
	assert.Contains(t, err.Error(), "duplicated key")
}

func TestAsAndIs(t *testing.T) {
	base := Conflict("error.user_already_existed")
	wrapped := fmt.Errorf("register: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)

	assert.True(t, Is(wrapped, KindConflict, "error.user_already_existed"))
	assert.False(t, Is(wrapped, KindBadRequest, "error.user_already_existed"))
	assert.False(t, Is(errors.New("plain"), KindConflict, "error.user_already_existed"))
}

func TestInternalKeepsStack(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, StackTrace(err))
	assert.Empty(t, StackTrace(BadRequest("k")))
}

func TestValidationMessages(t *testing.T) {
	err := Validation([]Message{{Key: "validation.required", Args: map[string]any{"field": "email"}}})

	assert.Equal(t, KindBadRequest, err.Kind)
	require.Len(t, err.Messages, 1)
	assert.Equal(t, "email", err.Messages[0].Args["field"])
}
