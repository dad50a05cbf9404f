// Package internal holds helpers private to the tokenauth module: refresh
// token generation and secret fingerprints for logs and audit events.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: the login, refresh, revoke and validate orchestration behind Engine
//   - rate: Redis-backed fixed-window login and refresh throttles
//   - config, logging, directory, httpapi: the tokenauthd server
package internal
