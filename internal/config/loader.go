package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "TOKENAUTH"
	configName = "tokenauth"
)

// Load reads the configuration from path, or from tokenauth.yaml in ., ./configs
// and /etc/tokenauth when path is empty. Environment variables prefixed with
// TOKENAUTH_ override file values. A missing discovered file is not an error;
// a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/tokenauth")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Every key needs a default for AutomaticEnv to reach it through Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "production")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.signing_method", "hs256")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audiences", []string{})
	v.SetDefault("jwt.validate_audience", false)
	v.SetDefault("jwt.access_ttl", "60m")
	v.SetDefault("jwt.refresh_ttl", "43200m")
	v.SetDefault("jwt.leeway", "1m")

	v.SetDefault("claims.email_domain", "")
	v.SetDefault("claims.default_roles", []string{"Admin"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.production_mode", false)
	v.SetDefault("security.login_throttle", false)
	v.SetDefault("security.ip_throttle", false)
	v.SetDefault("security.max_login_attempts", 5)
	v.SetDefault("security.login_cooldown", "15m")
	v.SetDefault("security.refresh_throttle", false)
	v.SetDefault("security.max_refresh_attempts", 20)
	v.SetDefault("security.refresh_cooldown", "1m")
	v.SetDefault("security.rate_limit_prefix", "tokenauth")
	v.SetDefault("security.revoke_family_on_reuse", false)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.drop_if_full", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency_histograms", true)

	v.SetDefault("directory.open_login", true)
	v.SetDefault("directory.users", []map[string]any{})
}
