package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenauth/refresh"
)

// RevokeFailureKind classifies revoke flow failures for root-level mapping.
type RevokeFailureKind int

const (
	RevokeFailureNone RevokeFailureKind = iota
	RevokeFailureDecode
	RevokeFailureNoTokens
	RevokeFailureRevoked
	RevokeFailureStore
)

// RevokeResult reports the outcome of a revocation.
type RevokeResult struct {
	Failure RevokeFailureKind
	Err     error
	UserID  string
}

// RevokeDeps captures revoke flow dependencies.
type RevokeDeps struct {
	Codec TokenCodec
	Store RefreshStore
}

// RunRevoke tombstones refreshToken for the subject of a currently valid
// access token. Unlike refresh, an expired access token is rejected.
func RunRevoke(_ context.Context, accessToken, refreshToken string, deps RevokeDeps) RevokeResult {
	decoded, err := deps.Codec.Decode(accessToken, true)
	if err != nil {
		return RevokeResult{Failure: RevokeFailureDecode, Err: err}
	}

	userID := decoded.Subject
	if err := deps.Store.Revoke(userID, refreshToken); err != nil {
		kind := RevokeFailureStore
		switch {
		case errors.Is(err, refresh.ErrNoTokensForUser):
			kind = RevokeFailureNoTokens
		case errors.Is(err, refresh.ErrRefreshTokenRevoked):
			kind = RevokeFailureRevoked
		}
		return RevokeResult{Failure: kind, Err: err, UserID: userID}
	}

	return RevokeResult{Failure: RevokeFailureNone, UserID: userID}
}
