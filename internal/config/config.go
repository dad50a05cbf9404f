// Package config loads the tokenauthd process configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
)

// Config is the process configuration. Keys in YAML and the environment use
// the mapstructure names, e.g. jwt.access_ttl or TOKENAUTH_JWT_ACCESS_TTL.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Claims    ClaimsConfig    `mapstructure:"claims"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Security  SecurityConfig  `mapstructure:"security"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Directory DirectoryConfig `mapstructure:"directory"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Env   string `mapstructure:"env"`
}

type JWTConfig struct {
	Secret           string        `mapstructure:"secret"`
	SigningMethod    string        `mapstructure:"signing_method"`
	Issuer           string        `mapstructure:"issuer"`
	Audiences        []string      `mapstructure:"audiences"`
	ValidateAudience bool          `mapstructure:"validate_audience"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	Leeway           time.Duration `mapstructure:"leeway"`
}

type ClaimsConfig struct {
	EmailDomain  string   `mapstructure:"email_domain"`
	DefaultRoles []string `mapstructure:"default_roles"`
}

// RedisConfig configures the throttle backend. With Enabled set and an empty
// Addr the server starts an in-process Redis.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SecurityConfig struct {
	ProductionMode      bool          `mapstructure:"production_mode"`
	LoginThrottle       bool          `mapstructure:"login_throttle"`
	IPThrottle          bool          `mapstructure:"ip_throttle"`
	MaxLoginAttempts    int           `mapstructure:"max_login_attempts"`
	LoginCooldown       time.Duration `mapstructure:"login_cooldown"`
	RefreshThrottle     bool          `mapstructure:"refresh_throttle"`
	MaxRefreshAttempts  int           `mapstructure:"max_refresh_attempts"`
	RefreshCooldown     time.Duration `mapstructure:"refresh_cooldown"`
	RateLimitPrefix     string        `mapstructure:"rate_limit_prefix"`
	RevokeFamilyOnReuse bool          `mapstructure:"revoke_family_on_reuse"`
}

type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

// DirectoryConfig configures the in-memory user directory. In open-login
// mode the login endpoint trusts the submitted username.
type DirectoryConfig struct {
	OpenLogin bool         `mapstructure:"open_login"`
	Users     []UserConfig `mapstructure:"users"`
}

type UserConfig struct {
	Username string   `mapstructure:"username"`
	Name     string   `mapstructure:"name"`
	Email    string   `mapstructure:"email"`
	Password string   `mapstructure:"password"`
	Roles    []string `mapstructure:"roles"`
}

// Validate checks the settings the engine does not validate itself.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	if !c.Redis.Enabled && (c.Security.LoginThrottle || c.Security.RefreshThrottle) {
		return fmt.Errorf("security throttles require redis.enabled")
	}
	seen := make(map[string]struct{}, len(c.Directory.Users))
	for i, u := range c.Directory.Users {
		key := strings.ToLower(strings.TrimSpace(u.Username))
		if key == "" {
			return fmt.Errorf("directory.users[%d].username is required", i)
		}
		if u.Password == "" {
			return fmt.Errorf("directory.users[%d].password is required", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("directory.users[%d]: duplicate username %q", i, u.Username)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// EngineConfig converts the process configuration to the engine's. Argon2
// parameters keep the engine defaults.
func (c *Config) EngineConfig() tokenauth.Config {
	cfg := tokenauth.DefaultConfig()
	if c.Security.ProductionMode {
		cfg = tokenauth.HighSecurityConfig()
	}

	cfg.JWT.Secret = []byte(c.JWT.Secret)
	if c.JWT.SigningMethod != "" {
		cfg.JWT.SigningMethod = c.JWT.SigningMethod
	}
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audiences = append([]string(nil), c.JWT.Audiences...)
	cfg.JWT.ValidateAudience = c.JWT.ValidateAudience
	cfg.JWT.AccessTTL = c.JWT.AccessTTL
	cfg.JWT.RefreshTTL = c.JWT.RefreshTTL
	cfg.JWT.Leeway = c.JWT.Leeway

	cfg.Claims.EmailDomain = c.Claims.EmailDomain
	if len(c.Claims.DefaultRoles) > 0 {
		cfg.Claims.DefaultRoles = append([]string(nil), c.Claims.DefaultRoles...)
	}

	cfg.Security.ProductionMode = c.Security.ProductionMode
	cfg.Security.EnableLoginThrottle = c.Security.LoginThrottle
	cfg.Security.EnableIPThrottle = c.Security.IPThrottle
	cfg.Security.MaxLoginAttempts = c.Security.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.Security.LoginCooldown
	cfg.Security.EnableRefreshThrottle = c.Security.RefreshThrottle
	cfg.Security.MaxRefreshAttempts = c.Security.MaxRefreshAttempts
	cfg.Security.RefreshCooldownDuration = c.Security.RefreshCooldown
	cfg.Security.RateLimitPrefix = c.Security.RateLimitPrefix
	cfg.Security.RevokeFamilyOnReuse = c.Security.RevokeFamilyOnReuse

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms
	return cfg
}
