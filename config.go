package tokenauth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds every engine setting. Builder.WithConfig copies it, so later
// mutation by the caller has no effect on a built Engine.
type Config struct {
	JWT      JWTConfig
	Claims   ClaimsConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token signing and the token lifetimes.
//
// Changing Secret invalidates every token issued under the previous one.
type JWTConfig struct {
	Secret           []byte
	SigningMethod    string // "hs256" (default), "hs384", "hs512"
	Issuer           string
	Audiences        []string
	ValidateAudience bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	// Leeway is the clock-skew tolerance for exp and nbf.
	Leeway time.Duration
}

/*
====================================
CLAIMS CONFIG
====================================
*/

// ClaimsConfig parameterizes the DefaultClaimsProvider used when the builder
// is given no ClaimsProvider.
type ClaimsConfig struct {
	EmailDomain  string
	DefaultRoles []string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
AUDIT / METRICS
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls throttling and the response to refresh-token reuse.
// Either throttle requires a Redis client on the Builder.
type SecurityConfig struct {
	ProductionMode bool

	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration

	// RateLimitPrefix namespaces the throttle keys in Redis.
	RateLimitPrefix string

	// RevokeFamilyOnReuse tombstones every active refresh token of a user when
	// a rotated-away token is presented again.
	RevokeFamilyOnReuse bool
}

func (s SecurityConfig) throttlesEnabled() bool {
	return s.EnableLoginThrottle || s.EnableRefreshThrottle
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults without a signing secret.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			AccessTTL:     60 * time.Minute,
			RefreshTTL:    43200 * time.Minute,
			Leeway:        time.Minute,
		},
		Claims: ClaimsConfig{
			DefaultRoles: []string{"Admin"},
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:          false,
			EnableLoginThrottle:     false,
			EnableIPThrottle:        false,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   false,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
			RateLimitPrefix:         "tokenauth",
			RevokeFamilyOnReuse:     false,
		},
	}
}

// HighSecurityConfig returns a production preset: short lifetimes, every
// throttle on and family revocation on reuse. The caller still supplies the
// secret and issuer.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.JWT.Leeway = 30 * time.Second
	cfg.JWT.SigningMethod = "hs512"
	cfg.Password.Memory = 128 * 1024
	cfg.Password.Time = 4
	cfg.Security.ProductionMode = true
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.EnableIPThrottle = true
	cfg.Security.EnableRefreshThrottle = true
	cfg.Security.RevokeFamilyOnReuse = true
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.JWT.Audiences = append([]string(nil), cfg.JWT.Audiences...)
	out.Claims.DefaultRoles = append([]string(nil), cfg.Claims.DefaultRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

const (
	minSecretBytes           = 32
	minProductionSecretBytes = 64
	maxLeeway                = 5 * time.Minute
)

func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretBytes {
		return fmt.Errorf("JWT Secret must be at least %d bytes", minSecretBytes)
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256", "hs384", "hs512":
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > maxLeeway {
		return errors.New("JWT Leeway must be between 0 and 5m")
	}
	for _, aud := range c.JWT.Audiences {
		if strings.TrimSpace(aud) == "" {
			return errors.New("JWT Audiences must not contain blank values")
		}
	}
	if c.JWT.ValidateAudience && len(c.JWT.Audiences) == 0 {
		return errors.New("JWT ValidateAudience requires at least one audience")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("Security EnableIPThrottle requires EnableLoginThrottle")
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}

	if c.Security.ProductionMode {
		if strings.TrimSpace(c.JWT.Issuer) == "" {
			return errors.New("ProductionMode requires a JWT Issuer")
		}
		if len(c.JWT.Secret) < minProductionSecretBytes {
			return fmt.Errorf("ProductionMode requires a JWT Secret of at least %d bytes", minProductionSecretBytes)
		}
		if c.Password.Memory < 64*1024 || c.Password.Time < 2 {
			return errors.New("ProductionMode requires Argon2 memory >= 64 MB and time >= 2")
		}
		if !c.Security.throttlesEnabled() {
			return errors.New("ProductionMode requires login or refresh throttling")
		}
	}

	return nil
}
