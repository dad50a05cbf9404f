package tokenauth

import (
	"time"

	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/jwt"
)

// Identity is the authenticated subject a token pair is issued to. UserID is
// opaque and supplied by the caller; uniqueness is the caller's concern.
type Identity = flows.Identity

// TokenPair is returned by Login and Refresh. The JSON names match the
// account API's response body.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"expiryDate"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiryDate"`
}

// AuthResult is returned by [Engine.Validate].
type AuthResult struct {
	UserID    string
	Name      string
	Email     string
	Roles     []string
	Claims    jwt.ClaimSet
	ExpiresAt time.Time
	TokenID   string
}

// Identity returns the subject the token was issued to.
func (r *AuthResult) Identity() Identity {
	if r == nil {
		return Identity{}
	}
	return Identity{
		UserID: r.UserID,
		Name:   r.Name,
		Email:  r.Email,
		Roles:  append([]string(nil), r.Roles...),
	}
}

// UserProvider is implemented by the caller's user directory. It backs
// [Engine.LoginWithPassword] and lets Refresh pick up role changes.
type UserProvider interface {
	// GetUserByIdentifier looks up a login name. Unknown names return ErrUserNotFound.
	GetUserByIdentifier(identifier string) (UserRecord, error)
	GetUserByID(userID string) (UserRecord, error)
}

// UserRecord is a directory entry returned by [UserProvider].
type UserRecord struct {
	UserID       string
	Identifier   string
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
}

// Identity converts the record to the identity tokens are issued to.
func (u UserRecord) Identity() Identity {
	name := u.Name
	if name == "" {
		name = u.Identifier
	}
	return Identity{
		UserID: u.UserID,
		Name:   name,
		Email:  u.Email,
		Roles:  append([]string(nil), u.Roles...),
	}
}
