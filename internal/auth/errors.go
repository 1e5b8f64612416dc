package auth

import "fmt"

// SecretReason says why key material was rejected.
type SecretReason string

const (
	SecretEmpty SecretReason = "empty"
	SecretWeak  SecretReason = "weak"
)

// SecretError reports unusable signing-key material. The key itself is
// never part of the message.
type SecretError struct {
	Reason SecretReason
}

func (e *SecretError) Error() string {
	if e.Reason == SecretEmpty {
		return "secret: signing key is empty (set SECRET_KEY)"
	}
	return fmt.Sprintf("secret: signing key is too short, need at least %d bytes", MinKeyLength)
}

// AuthReason classifies a token verification failure.
type AuthReason string

const (
	AuthExpired          AuthReason = "expired"
	AuthInvalidSignature AuthReason = "invalid-signature"
	AuthMalformed        AuthReason = "malformed"
)

// AuthError reports a rejected token.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: token rejected (%s): %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
