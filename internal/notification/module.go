package notification

import (
	"context"
	"log/slog"

	"github.com/coincraze/authd/internal/notification/inbound"
	"github.com/coincraze/authd/internal/notification/outbound/db"
	"github.com/coincraze/authd/internal/notification/outbound/email"
	"github.com/coincraze/authd/internal/notification/usecase"
	"github.com/coincraze/authd/internal/pkg/authz"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"github.com/coincraze/authd/internal/pkg/idempotency"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/mail"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/pkg/router"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const idempotencyNamespace = "notification"

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  redis.UniversalClient      // enables Idempotency-Key handling
	Authz      authz.Authorizer           // nil denies cross-account creates
	Messaging  messaging.Consumer         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	var idemp idempotency.Idempotency
	if dep.CacheConn != nil {
		idemp = idempotency.New(dep.CacheConn, idempotencyNamespace)
	} else {
		slog.Warn("notification idempotency disabled, no redis connection")
	}

	uc := usecase.NewNotification(usecase.Dependency{
		RepoDB:      db.NewDB(dep.DBConn, dep.Instrument),
		RepoMail:    email.New(dep.Mail, dep.Instrument, dep.Config.GetString("app.brand")),
		Authz:       dep.Authz,
		Idempotency: idemp,
		Config:      dep.Config,
		UID:         dep.UID,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	started := inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	slog.Info("notification consumers ready", "started", started)

	return nil
}
