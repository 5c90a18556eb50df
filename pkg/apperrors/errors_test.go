package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsMatchWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("order %s not found", "abc"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
}

func TestUnavailableUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("load schedule", cause)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("x"), http.StatusNotFound},
		{"invalid", InvalidArgument("x"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("x"), http.StatusUnauthorized},
		{"unavailable", Unavailable("x", errors.New("boom")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "cannot ship more than required", PublicMessage(InvalidArgument("cannot ship more than required")))
	assert.Equal(t, "internal server error", PublicMessage(Unavailable("insert", errors.New("socket closed"))))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("raw")))
}
