package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/tokenauth/internal"
	"github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/refresh"
	"go.uber.org/zap"
)

// Engine issues, refreshes and revokes token pairs. It is safe for
// concurrent use once built.
type Engine struct {
	config       Config
	codec        *jwt.Manager
	store        *refresh.Store
	claims       ClaimsProvider
	userProvider UserProvider
	rateLimiter  *rate.Limiter
	passwordHash *password.Argon2
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time
	flows        flows.Deps
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// RefreshStats reports the size of the refresh-token store.
func (e *Engine) RefreshStats() refresh.Stats {
	if e == nil || e.store == nil {
		return refresh.Stats{}
	}
	return e.store.Stats()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) buildFlowDeps() flows.Deps {
	tokens := flows.Tokens{
		Codec:      e.codec,
		Store:      e.store,
		Claims:     e.claims.GetClaims,
		Now:        e.now,
		AccessTTL:  e.config.JWT.AccessTTL,
		RefreshTTL: e.config.JWT.RefreshTTL,
	}

	refreshDeps := flows.RefreshDeps{
		Tokens:              tokens,
		IsRateLimited:       func(err error) bool { return errors.Is(err, rate.ErrRateLimited) },
		RevokeFamilyOnReuse: e.config.Security.RevokeFamilyOnReuse,
	}
	if e.rateLimiter != nil {
		refreshDeps.RateLimiter = e.rateLimiter
	}
	if e.userProvider != nil {
		refreshDeps.ResolveIdentity = e.resolveIdentity
	}

	return flows.Deps{
		Login:    flows.LoginDeps{Tokens: tokens},
		Refresh:  refreshDeps,
		Revoke:   flows.RevokeDeps{Codec: e.codec, Store: e.store},
		Validate: flows.ValidateDeps{Codec: e.codec},
	}
}

// resolveIdentity replaces the roles, and when known the name and email, of
// a refreshing user with the directory's current values. Users the directory
// does not know keep the identity recovered from the token.
func (e *Engine) resolveIdentity(_ context.Context, id Identity) Identity {
	rec, err := e.userProvider.GetUserByID(id.UserID)
	if err != nil {
		return id
	}
	fresh := rec.Identity()
	fresh.UserID = id.UserID
	if fresh.Name == "" {
		fresh.Name = id.Name
	}
	if fresh.Email == "" {
		fresh.Email = id.Email
	}
	return fresh
}

// Login issues an access token and starts a new refresh-token chain for id.
// The caller has already authenticated id.
func (e *Engine) Login(ctx context.Context, id Identity) (*TokenPair, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, id, e.flows.Login)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureIdentity:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidIdentity, func() map[string]string {
			return map[string]string{"reason": "empty_user_id"}
		})
		return nil, ErrInvalidIdentity
	default:
		err := e.internalError("login", res.UserID, res.Err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, err, func() map[string]string {
			return map[string]string{"reason": loginFailureReason(res.Failure)}
		})
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, nil, nil)
	return pairFromIssued(res.Issued), nil
}

// Refresh exchanges refreshToken for a new token pair. accessToken may be
// expired; it only identifies the user, and its claims are derived again.
// A refresh token can be exchanged once; presenting it again fails with
// ErrRefreshTokenRevoked.
// A blank refreshToken fails with ErrRefreshTokenNotFound.
func (e *Engine) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricRefreshLatency, time.Since(start)) }()
	}

	res := flows.RunRefresh(ctx, accessToken, refreshToken, e.flows.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, nil, nil)
		return pairFromIssued(res.Issued), nil

	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", res.Err, func() map[string]string {
			return map[string]string{"reason": "access_token_invalid"}
		})
		return nil, res.Err

	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.UserID, ErrRefreshRateLimited, nil)
		e.emitRateLimit(ctx, "refresh", res.UserID)
		return nil, ErrRefreshRateLimited

	case flows.RefreshFailureNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, ErrRefreshTokenNotFound, func() map[string]string {
			return map[string]string{"reason": "not_found"}
		})
		return nil, ErrRefreshTokenNotFound

	case flows.RefreshFailureRevoked:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, ErrRefreshTokenRevoked, func() map[string]string {
			return map[string]string{"reason": "inactive"}
		})
		return nil, ErrRefreshTokenRevoked

	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		if res.FamilyRevoked > 0 {
			e.metrics.Add(MetricRefreshFamilyRevoked, uint64(res.FamilyRevoked))
		}
		e.logger.Warn("refresh token reuse detected",
			zap.String("user_id", res.UserID),
			zap.Int("family_revoked", res.FamilyRevoked),
			zap.String("token_fp", internal.Fingerprint(refreshToken)),
			zap.String("ip", clientIPFromContext(ctx)),
		)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.UserID, ErrRefreshTokenRevoked, func() map[string]string {
			return map[string]string{
				"family_revoked": strconv.Itoa(res.FamilyRevoked),
				"token_fp":       internal.Fingerprint(refreshToken),
			}
		})
		return nil, ErrRefreshTokenRevoked

	default:
		err := e.internalError("refresh", res.UserID, res.Err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, err, func() map[string]string {
			return map[string]string{"reason": refreshFailureReason(res.Failure)}
		})
		return nil, err
	}
}

// Revoke tombstones refreshToken. Unlike Refresh it requires a live access
// token. Revoking a token the user never held succeeds silently.
func (e *Engine) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}

	res := flows.RunRevoke(ctx, accessToken, refreshToken, e.flows.Revoke)
	var err error
	switch res.Failure {
	case flows.RevokeFailureNone:
		e.metricInc(MetricRevokeSuccess)
		e.emitAudit(ctx, auditEventRevokeSuccess, true, res.UserID, nil, nil)
		return nil
	case flows.RevokeFailureDecode:
		err = res.Err
	case flows.RevokeFailureNoTokens:
		err = ErrNoTokensForUser
	case flows.RevokeFailureRevoked:
		err = ErrRefreshTokenRevoked
	default:
		err = e.internalError("revoke", res.UserID, res.Err)
	}

	e.metricInc(MetricRevokeFailure)
	e.emitAudit(ctx, auditEventRevokeFailure, false, res.UserID, err, nil)
	return err
}

// Validate verifies accessToken with expiry enforced and returns its subject.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	res := flows.RunValidate(ctx, accessToken, e.flows.Validate)
	if res.Failure != flows.ValidateFailureNone {
		e.metricInc(MetricValidateFailure)
		return nil, res.Err
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{
		UserID:    res.Identity.UserID,
		Name:      res.Identity.Name,
		Email:     res.Identity.Email,
		Roles:     res.Identity.Roles,
		Claims:    res.Decoded.Claims,
		ExpiresAt: res.Decoded.ExpiresAt,
		TokenID:   res.Decoded.TokenID,
	}, nil
}

func (e *Engine) internalError(op, userID string, cause error) error {
	e.metricInc(MetricInternalError)
	e.logger.Error("token operation failed",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Error(cause),
	)
	return fmt.Errorf("%w: %v", ErrInternal, cause)
}

func pairFromIssued(issued flows.Issued) *TokenPair {
	return &TokenPair{
		AccessToken:           issued.AccessToken,
		AccessTokenExpiresAt:  issued.AccessExpiresAt,
		RefreshToken:          issued.Refresh.Token,
		RefreshTokenExpiresAt: issued.Refresh.ExpiresAt,
	}
}

func loginFailureReason(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureIssueAccess:
		return "issue_access_failed"
	case flows.LoginFailureIssueRefresh:
		return "issue_refresh_failed"
	default:
		return "unknown"
	}
}

func refreshFailureReason(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureLimiterUnavailable:
		return "rate_limiter_unavailable"
	case flows.RefreshFailureRotate:
		return "rotate_failed"
	case flows.RefreshFailureIssueAccess:
		return "issue_access_failed"
	default:
		return "unknown"
	}
}
