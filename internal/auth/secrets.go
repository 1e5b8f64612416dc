// Package auth holds the in-memory secret material and the token and
// password primitives built on it: HMAC-signed JWTs for sessions and
// bcrypt for stored password hashes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/blogcore/internal/config"
)

// MinKeyLength is the minimum accepted signing-key length in bytes.
const MinKeyLength = 32

// Payload is the application data carried inside a token.
type Payload struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// Claims combines the registered JWT claims with the application payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Manager signs and verifies tokens with key material derived from the
// configuration. The key lives only in process memory and is never logged.
type Manager struct {
	method     jwt.SigningMethod
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Materialize validates the configured key material and returns a Manager.
// Empty keys and keys shorter than MinKeyLength are rejected.
func Materialize(cfg *config.Config) (*Manager, error) {
	key := []byte(cfg.SecretKey)
	if len(key) == 0 {
		return nil, &SecretError{Reason: SecretEmpty}
	}
	if len(key) < MinKeyLength {
		return nil, &SecretError{Reason: SecretWeak}
	}

	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("secret: unsupported signing algorithm %q", cfg.Algorithm)
	}

	return &Manager{
		method:     method,
		key:        key,
		accessTTL:  cfg.AccessTokenValidity,
		refreshTTL: cfg.RefreshTokenValidity,
	}, nil
}

// Sign mints a token carrying p that expires after ttl.
func (m *Manager) Sign(p Payload, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(m.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: p.UserID,
		Name:   p.Name,
		Email:  p.Email,
		Role:   p.Role,
	})
	return token.SignedString(m.key)
}

// AccessToken mints a token with the configured access-token lifetime.
func (m *Manager) AccessToken(p Payload) (string, error) {
	return m.Sign(p, m.accessTTL)
}

// RefreshToken mints a token with the configured refresh-token lifetime.
func (m *Manager) RefreshToken(p Payload) (string, error) {
	return m.Sign(p, m.refreshTTL)
}

// Verify parses and validates a token, returning its payload. Failures are
// reported as *AuthError with the reason expired, invalid-signature or
// malformed.
func (m *Manager) Verify(tokenString string) (Payload, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{m.method.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Payload{}, &AuthError{Reason: AuthMalformed, Err: err}
		case errors.Is(err, jwt.ErrTokenExpired):
			return Payload{}, &AuthError{Reason: AuthExpired, Err: err}
		default:
			return Payload{}, &AuthError{Reason: AuthInvalidSignature, Err: err}
		}
	}
	if !token.Valid {
		return Payload{}, &AuthError{Reason: AuthInvalidSignature, Err: errors.New("token invalid")}
	}

	return Payload{
		UserID: claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
