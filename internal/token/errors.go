package token

import "errors"

// ErrAuthenticationFailed is the umbrella all validation failures unwrap to.
// Handlers match on it and answer with a uniform "authentication failed" so
// responses do not leak which check rejected the token; logs keep the
// precise kind.
var ErrAuthenticationFailed = errors.New("token: authentication failed")

var (
	ErrMalformedToken   = &kindError{"token: malformed token"}
	ErrTokenExpired     = &kindError{"token: token expired"}
	ErrWrongTokenType   = &kindError{"token: wrong token type"}
	ErrInvalidSignature = &kindError{"token: invalid signature"}
	ErrTokenRevoked     = &kindError{"token: token revoked"}

	// ErrRevocationCheck reports a failed or timed-out revocation lookup.
	// Validation fails closed on it rather than assuming not-revoked.
	ErrRevocationCheck = &kindError{"token: revocation check failed"}
)

type kindError struct {
	msg string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return ErrAuthenticationFailed }
