package api

import (
	"errors"
	"fmt"
)

// Error codes reported by the API or produced by the client.
const (
	// CodeAuthRequired is returned without a network call when a gated
	// endpoint is used without a valid token.
	CodeAuthRequired = "api-auth-error"

	CodeInvalidUser     = "invalid-user"
	CodeInvalidPassword = "invalid-password"
	CodeInvalidMFA      = "invalid-mfa"

	// CodeGeneric is used when the server gave no usable message.
	CodeGeneric = "error"
)

// ErrAuthRequired is returned by gated calls when the session holds no
// valid token. It is checked before any request is sent.
var ErrAuthRequired = &Error{Code: CodeAuthRequired, Message: "authentication required"}

// Error is a failed API call.
//
// Code is the machine-readable failure ("invalid-password", "api-auth-error",
// ...). Message is the raw server message, Status the HTTP status (0 when the
// failure happened client-side).
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "" && e.Message != e.Code:
		return fmt.Sprintf("api: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("api: %s (HTTP %d)", e.Code, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("api: %s: %v", e.Code, e.Err)
	}
	return "api: " + e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, ErrAuthRequired)
// holds for any auth failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode returns the API error code carried by err, or "" when err is
// not an API error.
func ErrorCode(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

var userMessages = map[string]string{
	CodeAuthRequired:    "You need to log in first.",
	CodeInvalidUser:     "Unknown username.",
	CodeInvalidPassword: "Wrong password.",
	CodeInvalidMFA:      "Invalid one-time password.",
}

// UserMessage turns err into the short text shown to the user.
//
// Known codes get a fixed message; other API errors show the server message
// when there is one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong: " + err.Error()
	}
	if msg, ok := userMessages[apiErr.Code]; ok {
		return msg
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong."
}
