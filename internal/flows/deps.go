package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

// Identity is the authenticated subject the claims are derived from.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Roles  []string
}

// TokenCodec mints and decodes access tokens.
type TokenCodec interface {
	Mint(claims jwt.ClaimSet, expiry time.Time) (string, error)
	Decode(token string, validateExpiry bool) (*jwt.Decoded, error)
}

// RefreshStore is the subset of the refresh-token store the flows use.
type RefreshStore interface {
	Rotate(userID, presented string, newExpiry time.Time) (refresh.Record, error)
	Revoke(userID, token string) error
	Lookup(userID, token string) (refresh.Record, bool)
	RevokeFamily(userID string) int
}

// RefreshRateLimiter throttles refreshes per user.
type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, userID string) error
}

// Tokens groups the dependencies every issuing flow needs.
type Tokens struct {
	Codec      TokenCodec
	Store      RefreshStore
	Claims     func(Identity) jwt.ClaimSet
	Now        func() time.Time
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issued is the access token and refresh record produced by a login or refresh.
type Issued struct {
	AccessToken     string
	AccessExpiresAt time.Time
	Refresh         refresh.Record
}

// Deps groups flow dependency sets. The Engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Revoke   RevokeDeps
	Validate ValidateDeps
}

func (t Tokens) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t Tokens) mintAccess(id Identity, now time.Time) (string, time.Time, error) {
	expiry := now.Add(t.AccessTTL)
	token, err := t.Codec.Mint(t.Claims(id), expiry)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}
