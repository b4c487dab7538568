package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coincraze/authd/internal/identity/inbound"
	"github.com/coincraze/authd/internal/identity/outbound/db"
	"github.com/coincraze/authd/internal/identity/outbound/email"
	"github.com/coincraze/authd/internal/identity/outbound/ledger"
	"github.com/coincraze/authd/internal/identity/outbound/mq"
	"github.com/coincraze/authd/internal/identity/usecase"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"github.com/coincraze/authd/internal/pkg/hash"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"github.com/coincraze/authd/internal/pkg/mail"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/pkg/otp"
	"github.com/coincraze/authd/internal/pkg/router"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  redis.UniversalClient      // required by the redis ledger only
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Password   hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoLedger, err := newLedger(dep)
	if err != nil {
		return err
	}

	notifier, err := email.New(dep.Mail, dep.Instrument, email.Config{
		Brand:      dep.Config.GetString("app.brand"),
		Timeout:    dep.Config.GetSecond("modules.identity.notifier.timeout_seconds"),
		MaxRetries: dep.Config.GetInt("modules.identity.notifier.max_retries"),
	})
	if err != nil {
		return fmt.Errorf("identity: notifier: %w", err)
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoLedger:    repoLedger,
		RepoNotifier:  notifier,
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Validator:     dep.Validator,
		Config:        dep.Config,
		Password:      dep.Password,
		UID:           dep.UID,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

func newLedger(dep Dependency) (ledger.Ledger, error) {
	gen, err := otp.NewNumeric(4)
	if err != nil {
		return nil, err
	}

	driver := strings.TrimSpace(dep.Config.GetString("modules.identity.otp.ledger"))
	l, err := ledger.NewFromDriver(driver, dep.CacheConn, ledger.Config{
		TTL:        dep.Config.GetMinute("modules.identity.otp.ttl_minutes"),
		Generator:  gen,
		Digest:     dep.HMAC,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})
	if err != nil {
		return nil, fmt.Errorf("identity: otp ledger: %w", err)
	}

	if mem, ok := l.(*ledger.Memory); ok {
		interval := dep.Config.GetSecond("modules.identity.otp.sweep_interval_seconds")
		if !mem.StartSweeper(dep.Ctx, dep.Goroutine, interval) {
			slog.Warn("otp ledger sweeper not started", "interval", interval.String())
		}
	}

	slog.Info("otp ledger ready", "driver", driver)
	return l, nil
}
