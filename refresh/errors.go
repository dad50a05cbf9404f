package refresh

import "errors"

var (
	// ErrRefreshTokenNotFound is returned when the presented token is not in the user's family.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenRevoked is returned when the matched record is revoked, rotated away or expired.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	// ErrNoTokensForUser is returned by Revoke when the user has never been issued a token.
	ErrNoTokensForUser = errors.New("no refresh tokens for user")
	// ErrTokenSource wraps failures of the random token source.
	ErrTokenSource = errors.New("refresh token source failed")
	// ErrTokenCollision is returned when repeated generation keeps producing taken values.
	ErrTokenCollision = errors.New("refresh token collision")
)
