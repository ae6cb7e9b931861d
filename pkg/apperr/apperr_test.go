package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Invalid("bad input"), http.StatusBadRequest},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{errors.New("driver exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, Status(tc.err), tc.err.Error())
	}
}

func TestStatusUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("create alert: %w", NotFound("hospital profile not found"))
	assert.Equal(t, http.StatusNotFound, Status(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindForbidden))
}

func TestErrorMessage(t *testing.T) {
	err := Forbidden("alert is no longer active")
	assert.Equal(t, "alert is no longer active", err.Error())
}
