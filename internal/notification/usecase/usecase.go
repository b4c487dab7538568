package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/authz"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/idempotency"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateNotification(ctx context.Context, n entity.Notification) error
	ListNotifications(ctx context.Context, accountID int64, read *bool, limit, offset int) ([]entity.Notification, error)
	CountNotifications(ctx context.Context, accountID int64, since time.Time) (*entity.Counts, error)
	GetNotification(ctx context.Context, accountID, id int64) (*entity.Notification, error)
	SetNotificationRead(ctx context.Context, accountID, id int64, read bool, at time.Time) (*entity.Notification, error)
	SetAllNotificationsRead(ctx context.Context, accountID int64, read bool, at time.Time) (int64, error)
	DeleteNotifications(ctx context.Context, accountID int64, onlyRead bool) (int64, error)
	DeleteNotification(ctx context.Context, accountID, id int64) (*entity.Notification, error)
}

type repoMail interface {
	SendPasswordChanged(ctx context.Context, to string, at time.Time) error
}

type Usecase struct {
	repoDB    repoDB
	repoMail  repoMail
	authz     authz.Authorizer
	idemp     idempotency.Idempotency
	cfg       config.Config
	uid       uid.NumberID
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
	hub       *hub
}

type Dependency struct {
	RepoDB      repoDB
	RepoMail    repoMail
	Authz       authz.Authorizer
	Idempotency idempotency.Idempotency
	Config      config.Config
	UID         uid.NumberID
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		repoMail:  dep.RepoMail,
		authz:     dep.Authz,
		idemp:     dep.Idempotency,
		cfg:       dep.Config,
		uid:       dep.UID,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		hub:       newHub(),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

// pageLimit applies the configured default and ceiling to a requested page size.
func (s *Usecase) pageLimit(limit int) int {
	def := s.cfg.GetInt("modules.notification.page_limit_default")
	if def <= 0 {
		def = 20
	}
	ceiling := s.cfg.GetInt("modules.notification.page_limit_max")
	if ceiling <= 0 {
		ceiling = 100
	}

	switch {
	case limit == 0:
		return def
	case limit > ceiling:
		return ceiling
	default:
		return limit
	}
}

// create stores n and pushes it to the owner's open streams.
func (s *Usecase) create(ctx context.Context, n entity.Notification) error {
	if err := s.repoDB.CreateNotification(ctx, n); err != nil {
		return err
	}
	if skipped := s.hub.publish(n); skipped > 0 {
		slog.WarnContext(ctx, "stream too slow, entry skipped", "account_id", n.AccountID, "notification_id", n.ID, "streams", skipped)
	}
	return nil
}
