// Package auth gates privileged operations behind an Authorizer.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidCredentials is returned for a wrong password or token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authorizer issues and checks admin tokens.
type Authorizer interface {
	// Login exchanges a password for a bearer token.
	Login(password string) (string, error)
	// Authorize checks a bearer token.
	Authorize(token string) error
}

// SharedSecret is a single shared admin password. The token is the hex
// sha256 of the password: deterministic, no expiry, no revocation.
type SharedSecret struct {
	password string
	token    string
}

var _ Authorizer = (*SharedSecret)(nil)

// NewSharedSecret builds an Authorizer for the given password.
func NewSharedSecret(password string) *SharedSecret {
	password = strings.TrimSpace(password)
	return &SharedSecret{password: password, token: TokenFor(password)}
}

// TokenFor derives the bearer token of a password.
func TokenFor(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *SharedSecret) Login(password string) (string, error) {
	password = strings.TrimSpace(password)
	if password == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return "", ErrInvalidCredentials
	}
	return s.token, nil
}

func (s *SharedSecret) Authorize(token string) error {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type adminKey struct{}

// WithAdmin marks ctx as carrying a verified admin identity.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey{}, true)
}

// IsAdmin reports whether ctx carries a verified admin identity.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey{}).(bool)
	return v
}
