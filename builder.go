package tokenauth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/refresh"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	claims       ClaimsProvider
	store        *refresh.Store
	userProvider UserProvider
	auditSink    AuditSink
	logger       *zap.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client behind the login and refresh throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithClaimsProvider replaces the DefaultClaimsProvider built from Config.Claims.
func (b *Builder) WithClaimsProvider(p ClaimsProvider) *Builder {
	b.claims = p
	return b
}

// WithRefreshStore injects the refresh-token store. Without one the Engine
// owns a fresh store.
func (b *Builder) WithRefreshStore(s *refresh.Store) *Builder {
	b.store = s
	return b
}

// WithUserProvider enables LoginWithPassword and lets Refresh pick up the
// current roles of a known user.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. The default discards.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the wall clock for token issuance and validation.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Security.throttlesEnabled() && b.redis == nil {
		return nil, errors.New("login or refresh throttling requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	codec, err := jwt.NewManager(jwt.Config{
		SigningMethod:    jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		Secret:           cfg.JWT.Secret,
		Issuer:           cfg.JWT.Issuer,
		Audiences:        cfg.JWT.Audiences,
		ValidateAudience: cfg.JWT.ValidateAudience,
		Leeway:           leewayForCodec(cfg.JWT.Leeway),
		Now:              now,
	})
	if err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		store = refresh.NewStore(refresh.Config{Now: now})
	}

	claims := b.claims
	if claims == nil {
		claims = DefaultClaimsProvider{
			EmailDomain:  cfg.Claims.EmailDomain,
			DefaultRoles: cfg.Claims.DefaultRoles,
			Now:          now,
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		codec:        codec,
		store:        store,
		claims:       claims,
		userProvider: b.userProvider,
		logger:       logger,
		now:          now,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	if b.redis != nil && cfg.Security.throttlesEnabled() {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableLoginThrottle:     cfg.Security.EnableLoginThrottle,
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
			KeyPrefix:               cfg.Security.RateLimitPrefix,
		})
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	engine.flows = engine.buildFlowDeps()
	b.built = true

	return engine, nil
}

// The codec treats zero as "use the default"; a configured zero means none.
func leewayForCodec(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}
