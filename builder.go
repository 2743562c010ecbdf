package goVerify

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goVerify/internal/rate"
	"github.com/MrEthical07/goVerify/internal/stores"
	"github.com/MrEthical07/goVerify/lockout"
	"github.com/MrEthical07/goVerify/notify"
	"github.com/MrEthical07/goVerify/otp"
	"github.com/MrEthical07/goVerify/password"
	"github.com/MrEthical07/goVerify/pii"
	"github.com/MrEthical07/goVerify/session"
	"github.com/MrEthical07/goVerify/signing"
	"github.com/MrEthical07/goVerify/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts AccountStore
	lockouts LockoutStore

	notifier  notify.Notifier
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client used for access codes, the delivery
// throttle, the replay cache and, unless WithLockoutStore is given, lockout
// records.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the account table. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithLockoutStore overrides the Redis lockout store.
func (b *Builder) WithLockoutStore(store LockoutStore) *Builder {
	b.lockouts = store
	return b
}

// WithNotifier sets the outbound channel for emails and texts.
func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for every time-dependent check.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
//
// Build may return an error when the configuration is invalid or a required
// dependency is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- LOCKOUT --------
	lockouts := b.lockouts
	if lockouts == nil {
		lockouts = session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL).
			WithMaxRetries(cfg.Session.MaxRetries)
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		logger:   logger,
		clock:    clock,
		accounts: b.accounts,
		lockouts: lockouts,
		policy: lockout.Policy{
			MaxFailures: cfg.Lockout.MaxFailures,
			LockTime:    cfg.Lockout.LockTime,
		},
	}

	// -------- CRYPTO --------
	engine.signer = signing.NewSigner(
		cloneBytes(cfg.Secrets.Signing),
		signing.WithWindow(cfg.Request.Window),
		signing.WithLabel(cfg.Request.Label),
	)

	tm, err := token.NewManager(token.Config{
		Secret: cloneBytes(cfg.Secrets.Signing),
		Leeway: cfg.Token.Leeway,
		Now:    clock,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	engine.otp = otp.New(otp.Config{
		Issuer:      cfg.OTP.Issuer,
		ResyncWidth: cfg.OTP.ResyncWidth,
	})

	ph, err := password.NewHasher(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	if cfg.PII.Enabled {
		opts := []pii.Option{pii.WithInfo(cfg.PII.Info)}
		if len(cfg.PII.Salt) > 0 {
			opts = append(opts, pii.WithSalt(cloneBytes(cfg.PII.Salt)))
		}
		c, err := pii.NewCipher(cloneBytes(cfg.Secrets.PII), opts...)
		if err != nil {
			return nil, err
		}
		engine.cipher = c
	}

	// -------- REDIS-BACKED STORES --------
	engine.accessCodes = stores.NewAccessCodeStore(b.redis, cfg.Codes.RedisPrefix, clock)
	engine.loginChallenges = stores.NewLoginChallengeStore(b.redis, cfg.Codes.LoginChallengePrefix, clock)
	if cfg.Request.ReplayProtection {
		engine.replay = stores.NewReplayCache(b.redis, cfg.Request.ReplayPrefix)
	}
	engine.throttle = rate.New(b.redis, rate.Config{
		Prefix:       cfg.Delivery.RedisPrefix,
		MaxPerWindow: cfg.Delivery.MaxCodesPerWindow,
		Window:       cfg.Delivery.Window,
	})

	// -------- ASYNC --------
	notifier := b.notifier
	if notifier == nil {
		notifier = notify.LogNotifier{Logger: logger}
	}
	engine.delivery = newDeliveryDispatcher(cfg.Delivery, notifier, logger)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	for _, w := range cfg.Lint().BySeverity(LintHigh) {
		logger.Warn("configuration warning", slog.String("code", w.Code), slog.String("detail", w.Message))
	}

	b.built = true

	return engine, nil
}
