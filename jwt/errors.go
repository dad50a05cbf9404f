package jwt

import "errors"

var (
	// ErrInvalidToken is returned for empty, malformed, not-yet-valid or subject-less tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSignatureInvalid is returned when the signature or algorithm does not verify.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired is returned when expiry is validated and has passed beyond leeway.
	ErrTokenExpired = errors.New("token expired")
	// ErrIssuerMismatch is returned when the iss claim differs from the configured issuer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")
	// ErrAudienceMismatch is returned when no aud value is among the accepted audiences.
	ErrAudienceMismatch = errors.New("token audience mismatch")
	// ErrSigningFailed wraps failures of the signing primitive itself.
	ErrSigningFailed = errors.New("token signing failed")
)
