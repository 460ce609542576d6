// Package auth stores the user's auth token and decides whether the client
// is authenticated.
//
// The token is kept in a prefs.Store together with the time it was stored.
// Every IsAuthenticated call recomputes the token age and discards the token
// once it is MaxTokenAge old, so a stale token is never sent to the API.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jonboulle/clockwork"

	"github.com/handiism/listenmoe-client/internal/prefs"
)

// MaxTokenAge is how long a stored token is trusted.
const MaxTokenAge = 28 * 24 * time.Hour

const (
	keyUserToken = "user_token"
	keyLastAuth  = "last_auth"
	keyMFAToken  = "mfa_token"

	bearerPrefix = "Bearer "
)

// Session keeps the auth and MFA tokens in preference storage.
type Session struct {
	store prefs.Store
	clock clockwork.Clock
}

// NewSession creates a Session backed by store. A nil clock uses the real clock.
func NewSession(store prefs.Store, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{store: store, clock: clock}
}

// IsAuthenticated reports whether a token is stored and younger than
// MaxTokenAge. An expired token is cleared as a side effect.
func (s *Session) IsAuthenticated() bool {
	token, err := s.AuthToken()
	if err != nil || token == "" {
		return false
	}

	age, err := s.TokenAge()
	if err != nil || age >= MaxTokenAge {
		_ = s.ClearAuthToken()
		return false
	}
	return true
}

// AuthToken returns the stored token, "" when none.
func (s *Session) AuthToken() (string, error) {
	token, _, err := s.store.Get(keyUserToken)
	return token, err
}

// AuthTokenWithPrefix returns "Bearer <token>", "" when no token is stored.
func (s *Session) AuthTokenWithPrefix() string {
	token, err := s.AuthToken()
	if err != nil || token == "" {
		return ""
	}
	return bearerPrefix + token
}

// SetAuthToken stores the token and the current time.
func (s *Session) SetAuthToken(token string) error {
	return s.store.Set(map[string]string{
		keyUserToken: token,
		keyLastAuth:  strconv.FormatInt(s.clock.Now().Unix(), 10),
	})
}

// ClearAuthToken removes the token and its timestamp.
func (s *Session) ClearAuthToken() error {
	return s.store.Delete(keyUserToken, keyLastAuth)
}

// LastAuth returns when the token was stored. Zero time when unknown.
func (s *Session) LastAuth() (time.Time, error) {
	raw, ok, err := s.store.Get(keyLastAuth)
	if err != nil || !ok {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: invalid %s %q: %w", keyLastAuth, raw, err)
	}
	return time.Unix(secs, 0), nil
}

// TokenAge returns how long ago the token was stored. A token without a
// timestamp is treated as infinitely old.
func (s *Session) TokenAge() (time.Duration, error) {
	last, err := s.LastAuth()
	if err != nil {
		return 0, err
	}
	if last.IsZero() {
		return MaxTokenAge, nil
	}
	return s.clock.Since(last), nil
}

// ExpiresAt returns when the stored token stops being trusted.
func (s *Session) ExpiresAt() (time.Time, error) {
	last, err := s.LastAuth()
	if err != nil || last.IsZero() {
		return time.Time{}, err
	}
	return last.Add(MaxTokenAge), nil
}

// MFAToken returns the intermediate token from a login that requires MFA.
func (s *Session) MFAToken() (string, error) {
	token, _, err := s.store.Get(keyMFAToken)
	return token, err
}

// MFATokenWithPrefix returns "Bearer <mfa token>", "" when none is stored.
func (s *Session) MFATokenWithPrefix() string {
	token, err := s.MFAToken()
	if err != nil || token == "" {
		return ""
	}
	return bearerPrefix + token
}

// SetMFAToken stores the intermediate MFA token.
func (s *Session) SetMFAToken(token string) error {
	return s.store.Set(map[string]string{keyMFAToken: token})
}

// ClearMFAToken removes the intermediate MFA token.
func (s *Session) ClearMFAToken() error {
	return s.store.Delete(keyMFAToken)
}

// Logout clears both tokens.
func (s *Session) Logout() error {
	return s.store.Delete(keyUserToken, keyLastAuth, keyMFAToken)
}

// Claims decodes the stored token's JWT claims without verifying them.
// They are for display only. Tokens that are not JWTs yield nil claims and
// no error.
func (s *Session) Claims() (jwt.MapClaims, error) {
	token, err := s.AuthToken()
	if err != nil || token == "" {
		return nil, err
	}
	return ParseClaims(token), nil
}

// ParseClaims decodes JWT claims without verification, nil for opaque tokens.
func ParseClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
