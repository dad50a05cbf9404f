package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod names an HMAC signing algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256. It is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
)

const (
	// DefaultLeeway is the clock-skew tolerance applied to exp and nbf.
	DefaultLeeway = time.Minute

	minSecretLength = 32
	maxLeeway       = 5 * time.Minute
)

// Config defines the codec's signing and validation parameters.
//
// Changing Secret invalidates every token minted under the previous one.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	Issuer        string
	// Audiences lists accepted audiences. The first one is stamped on minted tokens
	// whose claim set carries no aud.
	Audiences        []string
	ValidateAudience bool
	// Leeway defaults to DefaultLeeway when zero. Use a negative value to disable it.
	Leeway time.Duration
	Now    func() time.Time
}

// Manager mints and decodes access tokens. It is safe for concurrent use.
type Manager struct {
	config Config
	method *jwt.SigningMethodHMAC
}

// Decoded is the verified content of an access token.
type Decoded struct {
	// Claims holds the payload without the codec-owned exp, iss, aud and jti claims.
	Claims    ClaimSet
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	TokenID   string
}

// Get returns the first value of a claim type from the decoded claims.
func (d *Decoded) Get(claimType string) (string, bool) {
	if d == nil {
		return "", false
	}
	return d.Claims.Get(claimType)
}

// Values returns every value of a claim type from the decoded claims.
func (d *Decoded) Values(claimType string) []string {
	if d == nil {
		return nil
	}
	return d.Claims.Values(claimType)
}

// NewManager validates cfg and returns a codec bound to it.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	method, err := hmacMethod(cfg.SigningMethod)
	if err != nil {
		return nil, err
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretLength)
	}

	switch {
	case cfg.Leeway == 0:
		cfg.Leeway = DefaultLeeway
	case cfg.Leeway < 0:
		cfg.Leeway = 0
	case cfg.Leeway > maxLeeway:
		return nil, errors.New("invalid leeway configuration")
	}

	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	audiences := make([]string, 0, len(cfg.Audiences))
	for _, aud := range cfg.Audiences {
		if aud = strings.TrimSpace(aud); aud != "" {
			audiences = append(audiences, aud)
		}
	}
	cfg.Audiences = audiences
	if cfg.ValidateAudience && len(cfg.Audiences) == 0 {
		return nil, errors.New("audience validation requires at least one audience")
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg, method: method}, nil
}

// Leeway returns the effective clock-skew tolerance.
func (j *Manager) Leeway() time.Duration {
	return j.config.Leeway
}

// Mint signs claims plus an exp claim equal to expiry.
//
// Caller-supplied exp, iss and jti claims are replaced by the codec's own.
func (j *Manager) Mint(claims ClaimSet, expiry time.Time) (string, error) {
	payload := claims.without(ClaimExpiry, ClaimIssuer, ClaimTokenID)
	payload = append(payload, Claim{Type: ClaimExpiry, Value: strconv.FormatInt(expiry.Unix(), 10)})
	if j.config.Issuer != "" {
		payload = append(payload, Claim{Type: ClaimIssuer, Value: j.config.Issuer})
	}
	if len(j.config.Audiences) > 0 && !claims.Has(ClaimAudience) {
		payload = append(payload, Claim{Type: ClaimAudience, Value: j.config.Audiences[0]})
	}

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	payload = append(payload, Claim{Type: ClaimTokenID, Value: jti.String()})

	token := jwt.NewWithClaims(j.method, tokenClaims{set: payload})
	signed, err := token.SignedString(j.config.Secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return signed, nil
}

// Decode verifies token and returns its claims. Expiry is enforced only when
// validateExpiry is true; signature, issuer, audience and nbf are always checked.
func (j *Manager) Decode(token string, validateExpiry bool) (*Decoded, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if validateExpiry {
		options = append(options, jwt.WithExpirationRequired())
	}

	claims := &tokenClaims{skipExpiry: !validateExpiry, issuer: j.config.Issuer}
	if j.config.ValidateAudience {
		claims.audiences = j.config.Audiences
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", t.Header["alg"])
		}
		return j.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && signatureUndecodable(parser, token) {
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	out := &Decoded{
		Claims:   claims.set.without(ClaimExpiry, ClaimIssuer, ClaimAudience, ClaimTokenID),
		Audience: claims.set.Values(ClaimAudience),
	}
	out.Subject, _ = claims.set.Get(ClaimSubject)
	out.Issuer, _ = claims.set.Get(ClaimIssuer)
	out.TokenID, _ = claims.set.Get(ClaimTokenID)
	if exp, err := claims.numericDate(ClaimExpiry); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	return out, nil
}

// classify maps library errors onto the codec's error kinds. Signature problems are
// reported before any claim problem because the parser verifies them first.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// signatureUndecodable reports whether the only malformed segment of token is
// its signature.
func signatureUndecodable(parser *jwt.Parser, token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, seg := range parts[:2] {
		raw, err := parser.DecodeSegment(seg)
		if err != nil || !json.Valid(raw) {
			return false
		}
	}
	_, err := parser.DecodeSegment(parts[2])
	return err != nil
}

func hmacMethod(m SigningMethod) (*jwt.SigningMethodHMAC, error) {
	switch SigningMethod(strings.ToLower(string(m))) {
	case MethodHS256:
		return jwt.SigningMethodHS256, nil
	case MethodHS384:
		return jwt.SigningMethodHS384, nil
	case MethodHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, errors.New("unsupported signing method")
	}
}
