package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureLimiterUnavailable
	RefreshFailureNotFound
	RefreshFailureRevoked
	RefreshFailureReuse
	RefreshFailureRotate
	RefreshFailureIssueAccess
)

// RefreshResult carries either the issued tokens or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	UserID  string
	// FamilyRevoked counts the records tombstoned in response to reuse.
	FamilyRevoked int
	Issued
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Tokens
	// ResolveIdentity may replace the identity recovered from the access token,
	// for example with fresh roles from a user directory.
	ResolveIdentity     func(context.Context, Identity) Identity
	RateLimiter         RefreshRateLimiter
	IsRateLimited       func(error) bool
	RevokeFamilyOnReuse bool
}

// RunRefresh exchanges a refresh token for a new token pair. The access token
// is decoded without enforcing expiry; only its identity and roles are carried
// over and the claims are derived again. A blank refresh token never reaches the
// store, where it would start a new chain.
func RunRefresh(ctx context.Context, accessToken, refreshToken string, deps RefreshDeps) RefreshResult {
	if strings.TrimSpace(refreshToken) == "" {
		return RefreshResult{Failure: RefreshFailureNotFound, Err: refresh.ErrRefreshTokenNotFound}
	}

	decoded, err := deps.Codec.Decode(accessToken, false)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	id := IdentityFromDecoded(decoded)
	id.Roles = decoded.Values(jwt.ClaimRole)
	if deps.ResolveIdentity != nil {
		id = deps.ResolveIdentity(ctx, id)
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, id.UserID); err != nil {
			kind := RefreshFailureLimiterUnavailable
			if deps.IsRateLimited != nil && deps.IsRateLimited(err) {
				kind = RefreshFailureRateLimited
			}
			return RefreshResult{Failure: kind, Err: err, UserID: id.UserID}
		}
	}

	now := deps.now()
	rec, err := deps.Store.Rotate(id.UserID, refreshToken, now.Add(deps.RefreshTTL))
	if err != nil {
		return classifyRotate(id.UserID, refreshToken, err, deps)
	}

	access, accessExp, err := deps.mintAccess(id, now)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssueAccess, Err: err, UserID: id.UserID}
	}

	return RefreshResult{
		Failure: RefreshFailureNone,
		UserID:  id.UserID,
		Issued: Issued{
			AccessToken:     access,
			AccessExpiresAt: accessExp,
			Refresh:         rec,
		},
	}
}

func classifyRotate(userID, presented string, err error, deps RefreshDeps) RefreshResult {
	switch {
	case errors.Is(err, refresh.ErrRefreshTokenNotFound):
		return RefreshResult{Failure: RefreshFailureNotFound, Err: err, UserID: userID}
	case errors.Is(err, refresh.ErrRefreshTokenRevoked):
		// A consumed record points at its replacement; presenting it again is replay.
		rec, ok := deps.Store.Lookup(userID, presented)
		if !ok || !rec.Rotated() {
			return RefreshResult{Failure: RefreshFailureRevoked, Err: err, UserID: userID}
		}
		out := RefreshResult{Failure: RefreshFailureReuse, Err: err, UserID: userID}
		if deps.RevokeFamilyOnReuse {
			out.FamilyRevoked = deps.Store.RevokeFamily(userID)
		}
		return out
	default:
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, UserID: userID}
	}
}

// IdentityFromDecoded recovers the identity carried by a verified access token.
// The display name falls back to unique_name and then to the subject.
func IdentityFromDecoded(d *jwt.Decoded) Identity {
	id := Identity{UserID: d.Subject}
	if name, ok := d.Get(jwt.ClaimName); ok && name != "" {
		id.Name = name
	} else if name, ok := d.Get(jwt.ClaimUniqueName); ok && name != "" {
		id.Name = name
	} else {
		id.Name = d.Subject
	}
	id.Email, _ = d.Get(jwt.ClaimEmail)
	return id
}
