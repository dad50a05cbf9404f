package tokenauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenauth/internal/rate"
	"go.uber.org/zap"
)

// LoginWithPassword authenticates identifier against the UserProvider and
// issues a token pair. An unknown identifier and a wrong password both fail
// with ErrInvalidCredentials. Failed attempts count against the login throttle.
func (e *Engine) LoginWithPassword(ctx context.Context, identifier, password string) (*TokenPair, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.userProvider == nil || e.passwordHash == nil {
		return nil, ErrPasswordLoginUnavailable
	}

	ip := clientIPFromContext(ctx)
	if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return nil, e.loginRateLimited(ctx, identifier)
		}
		return nil, e.internalError("login_throttle", "", err)
	}

	if password == "" {
		return nil, e.loginFailed(ctx, identifier, ip, "", "empty_password")
	}

	user, err := e.userProvider.GetUserByIdentifier(identifier)
	if err != nil {
		return nil, e.loginFailed(ctx, identifier, ip, "", "user_not_found")
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.loginFailed(ctx, identifier, ip, user.UserID, "invalid_password")
	}

	if err := e.rateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
		e.logger.Warn("login throttle reset failed", zap.String("identifier", identifier), zap.Error(err))
	}

	return e.Login(ctx, user.Identity())
}

func (e *Engine) loginFailed(ctx context.Context, identifier, ip, userID, reason string) error {
	if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return e.loginRateLimited(ctx, identifier)
		}
		return e.internalError("login_throttle", userID, err)
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

func (e *Engine) loginRateLimited(ctx context.Context, identifier string) error {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
		return map[string]string{"identifier": identifier}
	})
	e.emitRateLimit(ctx, "login", identifier)
	return ErrLoginRateLimited
}

// HashPassword hashes password with the engine's Argon2id parameters, for
// seeding a UserProvider.
func (e *Engine) HashPassword(password string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if e.passwordHash == nil {
		return "", ErrPasswordLoginUnavailable
	}
	hash, err := e.passwordHash.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
