package tokenauth

import (
	"errors"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

// Token codec errors.
var (
	ErrInvalidToken     = jwt.ErrInvalidToken
	ErrSignatureInvalid = jwt.ErrSignatureInvalid
	ErrTokenExpired     = jwt.ErrTokenExpired
	ErrIssuerMismatch   = jwt.ErrIssuerMismatch
	ErrAudienceMismatch = jwt.ErrAudienceMismatch
)

// Refresh store errors.
var (
	ErrRefreshTokenNotFound = refresh.ErrRefreshTokenNotFound
	ErrRefreshTokenRevoked  = refresh.ErrRefreshTokenRevoked
	ErrNoTokensForUser      = refresh.ErrNoTokensForUser
)

var (
	// ErrInvalidIdentity is returned by Login for an identity without a user id.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrInvalidCredentials covers both an unknown identifier and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by a UserProvider for an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is returned while the login throttle is tripped.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned while the refresh throttle is tripped.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrPasswordLoginUnavailable is returned by LoginWithPassword when no UserProvider is configured.
	ErrPasswordLoginUnavailable = errors.New("password login not configured")

	// ErrInternal wraps faults that say nothing about the caller's request:
	// signing failures, random source failures and an unreachable throttle backend.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned by every method of a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

var businessErrors = []error{
	ErrInvalidToken,
	ErrSignatureInvalid,
	ErrTokenExpired,
	ErrIssuerMismatch,
	ErrAudienceMismatch,
	ErrRefreshTokenNotFound,
	ErrRefreshTokenRevoked,
	ErrNoTokensForUser,
	ErrInvalidIdentity,
	ErrInvalidCredentials,
	ErrLoginRateLimited,
	ErrRefreshRateLimited,
}

// IsBusinessError reports whether err is a rejection of the caller's request,
// as opposed to an internal fault. Business errors must not be retried without
// the caller changing the request.
func IsBusinessError(err error) bool {
	if err == nil || errors.Is(err, ErrInternal) {
		return false
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
