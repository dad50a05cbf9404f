package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth"
)

// AccessTokenHeader is the fallback header read when Authorization carries
// no bearer token.
const AccessTokenHeader = "access_token"

// Validator is the subset of *tokenauth.Engine the guard needs.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*tokenauth.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*tokenauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokenauth.AuthResult)
	return res, ok && res != nil
}

// WithAuthResult stores res in ctx. Guard calls it; other transports may too.
func WithAuthResult(ctx context.Context, res *tokenauth.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a valid, unexpired access token with 401.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := AccessTokenFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := v.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// AccessTokenFromRequest returns the bearer token of the Authorization header,
// or the access_token header when there is none.
func AccessTokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	token := strings.TrimSpace(r.Header.Get(AccessTokenHeader))
	return token, token != ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
