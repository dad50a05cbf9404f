// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunRevoke, RunValidate) accepts a
// typed dependency struct and returns a result carrying either the issued
// tokens or a classified failure. The Engine maps failures to metrics, audit
// events and exported errors.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token codec, refresh store and rate
// limiter. They do NOT own any of these resources; ownership stays with the
// Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
