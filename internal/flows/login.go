package flows

import (
	"context"
	"errors"
	"strings"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureIdentity
	LoginFailureIssueAccess
	LoginFailureIssueRefresh
)

var errEmptyUserID = errors.New("identity has no user id")

// LoginResult carries either the issued tokens or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	UserID  string
	Issued
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Tokens
}

// RunLogin mints an access token for id and starts a new refresh-token chain.
// No prior refresh token is consulted.
func RunLogin(_ context.Context, id Identity, deps LoginDeps) LoginResult {
	if strings.TrimSpace(id.UserID) == "" {
		return LoginResult{Failure: LoginFailureIdentity, Err: errEmptyUserID}
	}

	now := deps.now()
	access, accessExp, err := deps.mintAccess(id, now)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueAccess, Err: err, UserID: id.UserID}
	}

	rec, err := deps.Store.Rotate(id.UserID, "", now.Add(deps.RefreshTTL))
	if err != nil {
		return LoginResult{Failure: LoginFailureIssueRefresh, Err: err, UserID: id.UserID}
	}

	return LoginResult{
		Failure: LoginFailureNone,
		UserID:  id.UserID,
		Issued: Issued{
			AccessToken:     access,
			AccessExpiresAt: accessExp,
			Refresh:         rec,
		},
	}
}
