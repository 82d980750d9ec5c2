package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("%w: only PDF files are allowed", ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("letter ABC: %w", ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"invalid transition", fmt.Errorf("letter is Verified: %w", ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", ErrConflict, http.StatusConflict, "CONFLICT"},
		{"unavailable", fmt.Errorf("insert letter: %w", ErrUnavailable), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_ForbiddenHidesDetail(t *testing.T) {
	err := fmt.Errorf("letter 0A1B2C3D4E5F owned by 7: %w", ErrForbidden)

	httpErr := MapErrorToHTTP(err)

	assert.Equal(t, "access denied", httpErr.Message)
	assert.NotContains(t, httpErr.ToErrorResponse().Error, "0A1B2C3D4E5F")
}
