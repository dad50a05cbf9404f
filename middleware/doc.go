// Package middleware exposes net/http adapters that guard routes with
// tokenauth.Engine access-token validation.
//
// [Guard] reads the access token from the request, calls Validate and stores
// the result in the request context, where [AuthResultFromContext] finds it.
// [RequireRole] narrows a guarded route to holders of a role claim.
//
// The package makes no decision of its own beyond pass or reject; token
// parsing and verification stay in the Engine.
package middleware
