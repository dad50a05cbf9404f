package internaldefs

import (
	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Issued token pairs."},
	{ID: tokenauth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Rejected login attempts."},
	{ID: tokenauth.MetricLoginRateLimited, Name: "tokenauth_login_rate_limited_total", Help: "Password logins refused by the throttle."},
	{ID: tokenauth.MetricRefreshSuccess, Name: "tokenauth_refresh_success_total", Help: "Completed refresh-token rotations."},
	{ID: tokenauth.MetricRefreshFailure, Name: "tokenauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: tokenauth.MetricRefreshReuseDetected, Name: "tokenauth_refresh_reuse_detected_total", Help: "Rotated refresh tokens presented again."},
	{ID: tokenauth.MetricRefreshFamilyRevoked, Name: "tokenauth_refresh_family_revoked_total", Help: "Refresh tokens revoked in response to reuse."},
	{ID: tokenauth.MetricRefreshRateLimited, Name: "tokenauth_refresh_rate_limited_total", Help: "Refresh attempts refused by the throttle."},
	{ID: tokenauth.MetricRevokeSuccess, Name: "tokenauth_revoke_success_total", Help: "Revoked refresh tokens."},
	{ID: tokenauth.MetricRevokeFailure, Name: "tokenauth_revoke_failure_total", Help: "Rejected revocations."},
	{ID: tokenauth.MetricValidateSuccess, Name: "tokenauth_validate_success_total", Help: "Accepted access tokens."},
	{ID: tokenauth.MetricValidateFailure, Name: "tokenauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: tokenauth.MetricRateLimitHit, Name: "tokenauth_rate_limit_hit_total", Help: "Throttle checks that denied requests."},
	{ID: tokenauth.MetricInternalError, Name: "tokenauth_internal_error_total", Help: "Faults unrelated to the request."},
}

// HistogramDefs lists the exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricValidateLatency, Name: "tokenauth_validate_latency_seconds", Help: "Validate latency histogram."},
	{ID: tokenauth.MetricRefreshLatency, Name: "tokenauth_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "tokenauth_audit_dropped_total"

// Refresh store gauges.
const (
	RefreshUsersName   = "tokenauth_refresh_store_users"
	RefreshRecordsName = "tokenauth_refresh_store_records"
	RefreshActiveName  = "tokenauth_refresh_store_active"
)

// HistogramBounds are the upper bounds, in seconds, of the engine's buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds for use in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into the running totals
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
