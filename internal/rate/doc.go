// Package rate provides the Redis-backed fixed-window counters behind the
// password-login and token-refresh throttles.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key kinds:
//   - al:  failed logins per identifier
//   - ali: failed logins per client IP
//   - ar:  refreshes per user
//
// A configured KeyPrefix is prepended to every key so several deployments can
// share one Redis database.
//
// # What this package must NOT do
//
//   - Decide what happens when a limit trips; the Engine maps errors to outcomes.
//   - Be imported outside the tokenauth module.
package rate
