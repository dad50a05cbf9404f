// Package tokenauth issues and refreshes bearer tokens: short-lived signed
// access tokens plus single-use, rotating refresh tokens tracked in memory.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config] and value
// types ([TokenPair], [AuthResult], [MetricsSnapshot]). The token codec lives in
// package jwt and the refresh-token store in package refresh; flow orchestration,
// rate limiting and audit dispatch live under internal/.
//
// # Refresh-token lifecycle
//
// Every login starts a chain for the user. Each refresh consumes the presented
// refresh token and issues its replacement; the consumed record stays behind as a
// tombstone, so presenting it again fails with [ErrRefreshTokenRevoked] and is
// reported as reuse. Records are never pruned while the process runs.
//
// # What this package must NOT do
//
//   - Persist refresh tokens or share them across processes.
//   - Expose Redis clients or internal stores in its public API.
//   - Import any sub-package that re-imports tokenauth (no import cycles).
package tokenauth
