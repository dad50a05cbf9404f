// Package jwt mints and decodes HMAC-signed access tokens carrying an ordered claim set.
//
// # Payload
//
// A minted payload is the caller's [ClaimSet] in insertion order, followed by the
// codec-owned registered claims exp, iss, aud (only when the set has none) and jti.
// Repeated claim types are emitted as one JSON array at the position of their first
// occurrence and decode back into repeated claims.
//
// # Expiry modes
//
// [Manager.Decode] validates expiry only when asked to. Refresh flows decode an
// expired access token to recover the identity; revoke flows require a live one.
// Lifetime checks apply the configured leeway (one minute by default).
//
// # What this package must NOT do
//
//   - Store tokens or keep per-token state.
//   - Import tokenauth, refresh, or any internal package.
package jwt
