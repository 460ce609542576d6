package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"auth required", ErrAuthRequired, "You need to log in first."},
		{"wrapped auth", fmt.Errorf("load favorites: %w", ErrAuthRequired), "You need to log in first."},
		{"invalid user", &Error{Code: CodeInvalidUser, Status: 401}, "Unknown username."},
		{"invalid password", &Error{Code: CodeInvalidPassword}, "Wrong password."},
		{"invalid mfa", &Error{Code: CodeInvalidMFA}, "Invalid one-time password."},
		{"server message", &Error{Code: CodeGeneric, Message: "Song not found."}, "Song not found."},
		{"generic", &Error{Code: CodeGeneric}, "Something went wrong."},
		{"not an api error", errors.New("dial tcp: refused"), "Something went wrong: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Code: CodeAuthRequired, Status: 401}
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.NotErrorIs(t, &Error{Code: CodeInvalidMFA}, ErrAuthRequired)

	wrapped := &Error{Code: CodeGeneric, Err: context.Canceled}
	assert.ErrorIs(t, wrapped, context.Canceled)
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "api: api-auth-error", ErrAuthRequired.Error())
	assert.Equal(t, "api: error (HTTP 404): Song not found.", (&Error{Code: CodeGeneric, Status: 404, Message: "Song not found."}).Error())
	assert.Equal(t, "api: invalid-user (HTTP 401)", (&Error{Code: CodeInvalidUser, Status: 401, Message: "invalid-user"}).Error())
}
