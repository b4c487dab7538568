package usecase

import (
	"context"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/hash"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type AccountRegisteredEvent struct {
	AccountID int64
	Email     string
}

type AccountPasswordResetEvent struct {
	AccountID int64
	Email     string
	ResetAt   time.Time
}

type repoMessaging interface {
	PublishAccountRegistered(ctx context.Context, msg AccountRegisteredEvent) error
	PublishAccountPasswordReset(ctx context.Context, msg AccountPasswordResetEvent) error
}

type repoDB interface {
	GetAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*entity.Account, error)
	CreateAccount(ctx context.Context, acc entity.Account) error
	UpdateAccountPassword(ctx context.Context, id int64, hash string, at time.Time) error
}

// repoLedger holds at most one pending code per email.
type repoLedger interface {
	Issue(ctx context.Context, email string) (string, error)
	Peek(ctx context.Context, email string) (*entity.OTPRecord, error)
	Verify(ctx context.Context, email, candidate string) error
	Claim(ctx context.Context, rec *entity.OTPRecord) error
	Consume(ctx context.Context, email string) error
}

type repoNotifier interface {
	SendPasswordResetOTP(ctx context.Context, email, code string, validFor time.Duration) error
}

type Usecase struct {
	repoDB        repoDB
	repoLedger    repoLedger
	repoNotifier  repoNotifier
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	password      hash.Hash
	uid           uid.NumberID
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoLedger    repoLedger
	RepoNotifier  repoNotifier
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	Password      hash.Hash
	UID           uid.NumberID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoLedger:    dep.RepoLedger,
		repoNotifier:  dep.RepoNotifier,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		password:      dep.Password,
		uid:           dep.UID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

// otpTTL is how long an issued code stays valid, as announced to the user.
func (s *Usecase) otpTTL() time.Duration {
	if ttl := s.cfg.GetMinute("modules.identity.otp.ttl_minutes"); ttl > 0 {
		return ttl
	}
	return 10 * time.Minute
}

// AuthOutput is returned by Signup and Login.
type AuthOutput struct {
	Token   string
	Account entity.AccountView
}

func (s *Usecase) issueSession(acc *entity.Account) (*AuthOutput, error) {
	token, err := s.jwt.Generate(acc.ID, acc.Email)
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Token: token, Account: acc.View()}, nil
}
