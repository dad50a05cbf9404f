package middleware

import (
	"net/http"

	"github.com/MrEthical07/tokenauth"
)

// RequireRole must be mounted behind [Guard]. It answers 403 when the
// validated token carries none of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !HasAnyRole(res, roles...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasAnyRole reports whether res carries at least one of roles.
func HasAnyRole(res *tokenauth.AuthResult, roles ...string) bool {
	if res == nil {
		return false
	}
	for _, held := range res.Roles {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}
