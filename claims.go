package tokenauth

import (
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// ClaimsProvider maps an identity to the ordered claims of its access token.
// Implementations must be pure and total: an empty identity yields an empty set.
type ClaimsProvider interface {
	GetClaims(id Identity) jwt.ClaimSet
}

// ClaimsProviderFunc adapts a function to [ClaimsProvider].
type ClaimsProviderFunc func(Identity) jwt.ClaimSet

func (f ClaimsProviderFunc) GetClaims(id Identity) jwt.ClaimSet {
	return f(id)
}

// DefaultClaimsProvider emits unique_name, name, iat, sub, email, amr and one
// role claim per role, in that order.
type DefaultClaimsProvider struct {
	// EmailDomain builds name@EmailDomain when the identity carries no email.
	EmailDomain string
	// DefaultRoles apply to identities without roles.
	DefaultRoles []string
	// AuthMethod is the amr value. Empty means "pwd".
	AuthMethod string
	Now        func() time.Time
}

func (p DefaultClaimsProvider) GetClaims(id Identity) jwt.ClaimSet {
	if strings.TrimSpace(id.UserID) == "" {
		return jwt.ClaimSet{}
	}

	name := id.Name
	if name == "" {
		name = id.UserID
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	amr := p.AuthMethod
	if amr == "" {
		amr = "pwd"
	}

	set := jwt.ClaimSet{
		{Type: jwt.ClaimUniqueName, Value: name},
		{Type: jwt.ClaimName, Value: name},
		{Type: jwt.ClaimIssuedAt, Value: strconv.FormatInt(now().Unix(), 10)},
		{Type: jwt.ClaimSubject, Value: id.UserID},
	}

	email := id.Email
	if email == "" && p.EmailDomain != "" {
		email = name + "@" + p.EmailDomain
	}
	if email != "" {
		set = append(set, jwt.Claim{Type: jwt.ClaimEmail, Value: email})
	}
	set = append(set, jwt.Claim{Type: jwt.ClaimAuthMethod, Value: amr})

	roles := id.Roles
	if len(roles) == 0 {
		roles = p.DefaultRoles
	}
	for _, role := range roles {
		set = append(set, jwt.Claim{Type: jwt.ClaimRole, Value: role})
	}
	return set
}
