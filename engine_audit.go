package tokenauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshRateLimited   = "refresh_rate_limited"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventRevokeSuccess        = "revoke_success"
	auditEventRevokeFailure        = "revoke_failure"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidToken          AuditErrorCode = "invalid_token"
	auditErrSignatureInvalid      AuditErrorCode = "signature_invalid"
	auditErrTokenExpired          AuditErrorCode = "token_expired"
	auditErrIssuerMismatch        AuditErrorCode = "issuer_mismatch"
	auditErrAudienceMismatch      AuditErrorCode = "audience_mismatch"
	auditErrRefreshNotFound       AuditErrorCode = "refresh_token_not_found"
	auditErrRefreshRevoked        AuditErrorCode = "refresh_token_revoked"
	auditErrNoTokensForUser       AuditErrorCode = "no_tokens_for_user"
	auditErrInvalidIdentity       AuditErrorCode = "invalid_identity"
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrPasswordLoginDisabled AuditErrorCode = "password_login_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, subject string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", nil, func() map[string]string {
		return map[string]string{
			"scope":   scope,
			"subject": subject,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInternal):
		return auditErrInternal
	case errors.Is(err, ErrSignatureInvalid):
		return auditErrSignatureInvalid
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrIssuerMismatch):
		return auditErrIssuerMismatch
	case errors.Is(err, ErrAudienceMismatch):
		return auditErrAudienceMismatch
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrRefreshTokenNotFound):
		return auditErrRefreshNotFound
	case errors.Is(err, ErrRefreshTokenRevoked):
		return auditErrRefreshRevoked
	case errors.Is(err, ErrNoTokensForUser):
		return auditErrNoTokensForUser
	case errors.Is(err, ErrInvalidIdentity):
		return auditErrInvalidIdentity
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrPasswordLoginUnavailable):
		return auditErrPasswordLoginDisabled
	default:
		return auditErrInternal
	}
}
