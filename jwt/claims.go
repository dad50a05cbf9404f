package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Standard claim types used by the codec and the default claims provider.
const (
	ClaimSubject    = "sub"
	ClaimName       = "name"
	ClaimUniqueName = "unique_name"
	ClaimEmail      = "email"
	ClaimIssuedAt   = "iat"
	ClaimNotBefore  = "nbf"
	ClaimAuthTime   = "auth_time"
	ClaimAuthMethod = "amr"
	ClaimRole       = "role"
	ClaimExpiry     = "exp"
	ClaimIssuer     = "iss"
	ClaimAudience   = "aud"
	ClaimTokenID    = "jti"
)

// Claim is one typed fact about an identity.
type Claim struct {
	Type  string
	Value string
}

// ClaimSet is an ordered sequence of claims. Order is preserved into the token payload
// and carries no meaning for validation.
type ClaimSet []Claim

// Get returns the first value of the given claim type.
func (s ClaimSet) Get(claimType string) (string, bool) {
	for _, c := range s {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns every value of the given claim type in order.
func (s ClaimSet) Values(claimType string) []string {
	var out []string
	for _, c := range s {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}

// Has reports whether the set carries at least one claim of the given type.
func (s ClaimSet) Has(claimType string) bool {
	_, ok := s.Get(claimType)
	return ok
}

// Clone returns an independent copy of the set.
func (s ClaimSet) Clone() ClaimSet {
	if s == nil {
		return nil
	}
	out := make(ClaimSet, len(s))
	copy(out, s)
	return out
}

func (s ClaimSet) without(types ...string) ClaimSet {
	out := make(ClaimSet, 0, len(s))
	for _, c := range s {
		drop := false
		for _, t := range types {
			if c.Type == t {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, c)
		}
	}
	return out
}

// tokenClaims adapts a ClaimSet to jwt.Claims. It keeps claim order on the wire,
// which a map-based claims type cannot.
type tokenClaims struct {
	set ClaimSet

	skipExpiry bool
	issuer     string
	audiences  []string
}

func numericClaim(claimType string) bool {
	switch claimType {
	case ClaimExpiry, ClaimIssuedAt, ClaimNotBefore, ClaimAuthTime:
		return true
	}
	return false
}

func (c tokenClaims) MarshalJSON() ([]byte, error) {
	order := make([]string, 0, len(c.set))
	grouped := make(map[string][]string, len(c.set))
	for _, cl := range c.set {
		if _, seen := grouped[cl.Type]; !seen {
			order = append(order, cl.Type)
		}
		grouped[cl.Type] = append(grouped[cl.Type], cl.Value)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		values := grouped[key]
		if len(values) == 1 {
			// single values are scalars; RFC 7519 accepts a string aud
			if err := writeClaimValue(&buf, key, values[0]); err != nil {
				return nil, err
			}
			continue
		}
		buf.WriteByte('[')
		for j, v := range values {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeClaimValue(&buf, key, v); err != nil {
				return nil, err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeClaimValue(buf *bytes.Buffer, claimType, value string) error {
	if numericClaim(claimType) {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			buf.WriteString(strconv.FormatInt(n, 10))
			return nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

func (c *tokenClaims) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("claims payload must be a JSON object")
	}

	c.set = c.set[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("claims payload has a non-string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		values, err := claimValues(raw)
		if err != nil {
			return err
		}
		for _, v := range values {
			c.set = append(c.set, Claim{Type: key, Value: v})
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func claimValues(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			v, err := scalarValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	v, err := scalarValue(raw)
	if err != nil {
		return nil, err
	}
	return []string{v}, nil
}

func scalarValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 'n':
		return "", nil
	case '{':
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return "", err
		}
		return compact.String(), nil
	default:
		return string(raw), nil
	}
}

func (c tokenClaims) numericDate(claimType string) (*jwt.NumericDate, error) {
	v, ok := c.set.Get(claimType)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, jwt.ErrInvalidType
	}
	sec, frac := math.Modf(f)
	return jwt.NewNumericDate(time.Unix(int64(sec), int64(frac*1e9))), nil
}

func (c tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.skipExpiry {
		return nil, nil
	}
	return c.numericDate(ClaimExpiry)
}

func (c tokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.numericDate(ClaimIssuedAt)
}

func (c tokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return c.numericDate(ClaimNotBefore)
}

func (c tokenClaims) GetIssuer() (string, error) {
	v, _ := c.set.Get(ClaimIssuer)
	return v, nil
}

func (c tokenClaims) GetSubject() (string, error) {
	v, _ := c.set.Get(ClaimSubject)
	return v, nil
}

func (c tokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings(c.set.Values(ClaimAudience)), nil
}

// Validate runs after the library's registered-claim checks; its error joins theirs.
func (c tokenClaims) Validate() error {
	if c.issuer != "" {
		if iss, _ := c.set.Get(ClaimIssuer); iss != c.issuer {
			return jwt.ErrTokenInvalidIssuer
		}
	}
	if len(c.audiences) > 0 {
		matched := false
		for _, have := range c.set.Values(ClaimAudience) {
			for _, want := range c.audiences {
				if have == want {
					matched = true
				}
			}
		}
		if !matched {
			return jwt.ErrTokenInvalidAudience
		}
	}
	if sub, _ := c.set.Get(ClaimSubject); sub == "" {
		return jwt.ErrTokenRequiredClaimMissing
	}
	return nil
}
