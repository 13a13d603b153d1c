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
		{"validation", Validation("reason is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"authentication", Authentication("token expired"), http.StatusUnauthorized, "AUTHENTICATION_FAILED"},
		{"authorization", Authorization("students cannot decide"), http.StatusForbidden, "FORBIDDEN"},
		{"not found", NotFound("gate pass %s", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid state", InvalidState("already approved"), http.StatusConflict, "INVALID_STATE"},
		{"precondition", Precondition("not approved"), http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
		{"wrapped twice", fmt.Errorf("ledger: %w", NotFound("gate pass")), http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantCode, httpErr.ToErrorResponse().Code)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.3:3306: refused"))
	assert.Equal(t, "internal server error", httpErr.Message)
}

func TestWrappedMessageKeepsDetail(t *testing.T) {
	err := InvalidState("gate pass %s is %s", "abc", "Approved")
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, "invalid state transition: gate pass abc is Approved", err.Error())
}
