package tokenauth

import (
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return "unknown"
	}
}

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in report order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast keeps the warnings whose severity is min or higher.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports settings that pass Validate but weaken the deployment. It
// never fails; call Validate for hard errors.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above one minute widens the replay window of expired access tokens")
	}
	if c.JWT.AccessTTL > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens cannot be revoked; lifetimes above 15m keep stolen tokens usable")
	}
	if c.JWT.RefreshTTL > 14*24*time.Hour {
		add("refresh_ttl_long", LintInfo, "refresh tokens live longer than 14 days")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		add("issuer_empty", LintWarn, "tokens carry no issuer and issuer validation is off")
	}
	if len(c.JWT.Audiences) > 0 && !c.JWT.ValidateAudience {
		add("audience_not_validated", LintWarn, "audiences are stamped on tokens but not checked on decode")
	}
	if !c.Security.throttlesEnabled() {
		add("rate_limits_disabled", LintHigh, "neither login nor refresh throttling is enabled")
	} else if c.Security.EnableLoginThrottle && !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "login throttling is per identifier only")
	}
	if !c.Security.RevokeFamilyOnReuse {
		add("reuse_family_revocation_disabled", LintInfo, "a replayed refresh token is rejected but the current one stays valid")
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped when the buffer is full")
	}

	return ws
}
