package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coincraze/authd/internal/pkg/authz"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"github.com/coincraze/authd/internal/pkg/hash"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"github.com/coincraze/authd/internal/pkg/mail"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/pkg/router"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
)

// ConfigPath resolves the config file: the explicit path, then CONFIG_PATH,
// then ./config/config.yaml.
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "./config/config.yaml"
}

var requiredKeys = []string{"jwt.secret", "hash.hmac.secret", "database.url", "mail.host", "mail.from"}

var errMissingConfig = errors.New("missing required config")

func (a *App) initConfig() error {
	cfg, err := config.NewViper(ConfigPath(a.configPath))
	if err != nil {
		return err
	}
	a.onClose("config", func(context.Context) error { return cfg.Close() })

	if missing := cfg.Missing(requiredKeys...); len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingConfig, strings.Join(missing, ", "))
	}

	//nolint:errcheck,gosec // TZ only affects log timestamps
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
	return nil
}

func (a *App) initInstrument() error {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		return err
	}
	a.onClose("instrument", ins.Shutdown)
	a.ins = ins
	return nil
}

func (a *App) initLibraries() error {
	a.clock = clock.New()
	a.uuid = uid.UUIDv7
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))

	var err error
	a.password, err = hash.NewPassword(hash.PasswordConfig{
		Algorithm:  a.config.GetString("hash.password.algorithm"),
		BcryptCost: a.config.GetInt("hash.bcrypt.cost"),
		Argon2: hash.Argon2Params{
			MemoryKiB:  uint32(max(a.config.GetInt("hash.argon2.memory_kib"), 0)),
			Time:       uint32(max(a.config.GetInt("hash.argon2.time"), 0)),
			Threads:    uint8(min(max(a.config.GetInt("hash.argon2.threads"), 0), 255)),
			Concurrent: a.config.GetInt("hash.argon2.concurrent"),
		},
		Pepper: a.config.GetString("hash.password.pepper"),
	})
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	a.validator, err = validator.NewV10Validator(
		validator.WithPasswordMinLength(a.config.GetInt("validation.password_min_length")),
		validator.WithCamelCaseFields(),
	)
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}

	a.uid, err = uid.NewSnowflakeNode(a.config.GetInt64("app.node_id"))
	if err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}
	return nil
}

func (a *App) initJWT() (err error) {
	a.jwt, err = jwt.NewHS512(jwt.Config{
		Secret: []byte(a.config.GetString("jwt.secret")),
		PreviousSecrets: lo.Map(a.config.GetArray("jwt.previous_secrets"), func(s string, _ int) []byte {
			return []byte(s)
		}),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	return err
}

// waitReady retries ping with exponential backoff until the dependency
// answers or the startup budget runs out.
func (a *App) waitReady(name string, ping func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.config.GetSecond("app.startup.ping_timeout_seconds"))
	defer cancel()

	attempts := uint64(max(a.config.GetInt("app.startup.ping_retries"), 0))
	backoff := retry.WithMaxRetries(attempts, retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			slog.WarnContext(ctx, "dependency not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (a *App) initDatabase() error {
	pc, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("parse database.url: %w", err)
	}
	pc.MaxConns = a.config.GetInt32("database.pool.max_conns")
	pc.MinConns = a.config.GetInt32("database.pool.min_conns")
	pc.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	pc.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	pc.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, pc)
	if err != nil {
		return err
	}
	a.onClose("database", func(context.Context) error { pool.Close(); return nil })

	if err := a.waitReady("database", pool.Ping); err != nil {
		return err
	}
	a.dbConn = pool
	return nil
}

// initCache connects redis when redis.url is set. Without it the OTP ledger
// must use the memory driver and idempotency keys are ignored.
func (a *App) initCache() error {
	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		slog.Warn("redis disabled, redis.url is empty")
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("parse redis.url: %w", err)
	}
	rdb := redis.NewClient(opt)
	a.onClose("redis", func(context.Context) error { return rdb.Close() })

	if err := a.waitReady("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		return err
	}
	a.cacheConn = rdb
	return nil
}

func (a *App) initMail() (err error) {
	a.mail, err = mail.NewSMTP(mail.SMTPConfig{
		Host:       a.config.GetString("mail.host"),
		Port:       a.config.GetInt("mail.port"),
		Username:   a.config.GetString("mail.username"),
		Password:   a.config.GetString("mail.password"),
		From:       a.config.GetString("mail.from"),
		Encryption: mail.Encryption(a.config.GetString("mail.encryption")),
	})
	return err
}

func (a *App) initMessaging() error {
	driver := a.config.GetString("messaging.driver")
	broker, err := messaging.Open(driver, messaging.NATSConfig{
		URL:  a.config.GetString("messaging.nats.url"),
		Name: a.config.GetString("messaging.nats.name"),
		Options: []nats.Option{
			nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
			nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
			nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
			nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
			nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
			nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
		},
	})
	if err != nil {
		return fmt.Errorf("driver %q: %w", driver, err)
	}
	a.onClose("messaging", func(context.Context) error { return broker.Close() })
	a.messaging = broker
	return nil
}

func (a *App) initAuthz() error {
	enforcer, err := authz.New(authz.NewAdapter(a.dbConn, a.config.GetArray("authz.policies")))
	if err != nil {
		return err
	}
	a.authz = enforcer
	a.authzSync = authz.NewReloader(a.dbConn, enforcer)
	a.authzSync.Start(a.ctx)
	a.onClose("authz", func(context.Context) error { return a.authzSync.Close() })
	return nil
}

func (a *App) initHTTPServer() error {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})
	a.router.GET("/health", a.health)

	handler := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	// The notification stream lifts WriteTimeout for its own response.
	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
	return nil
}
