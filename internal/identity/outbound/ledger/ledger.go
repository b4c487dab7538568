// Package ledger holds pending password-reset codes.
//
// A ledger keeps at most one record per email. Issuing a new code replaces
// the previous record, expiry is enforced on every access, and only an HMAC
// digest of the code is stored. A 4-digit code has 9000 possible values
// (about 13 bits), so the short TTL is what keeps guessing impractical.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/hash"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/otp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Supported drivers for modules.identity.otp.ledger.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// DefaultTTL is the lifetime of an issued code.
const DefaultTTL = 10 * time.Minute

var (
	// ErrUnknownDriver is returned for a ledger driver name that is not supported.
	ErrUnknownDriver = errors.New("ledger: unknown driver")
	// ErrMissingDependency is returned when Config lacks a generator or digest.
	ErrMissingDependency = errors.New("ledger: generator and digest are required")
)

// Config is shared by every ledger driver.
type Config struct {
	// TTL is the record lifetime; zero means DefaultTTL.
	TTL time.Duration
	// Generator produces the plaintext codes.
	Generator otp.Generator
	// Digest must be deterministic (HMAC) so Claim can match a stored digest.
	Digest hash.Hash
	// Clock is the time source; nil means wall clock.
	Clock clock.Clocker
	// Instrument provides the tracer and meter; nil means noop.
	Instrument instrument.Instrumentation
}

func (c Config) withDefaults() (Config, error) {
	if c.Generator == nil || c.Digest == nil {
		return c, ErrMissingDependency
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Instrument == nil {
		c.Instrument = instrument.NewNoop()
	}
	return c, nil
}

// issueCode generates a code and its digest.
func (c Config) issueCode() (code, digest string, err error) {
	code, err = c.Generator.Generate()
	if err != nil {
		return "", "", err
	}

	sum, err := c.Digest.Hash(code)
	if err != nil {
		return "", "", err
	}

	return code, string(sum), nil
}

type observer struct {
	tracer trace.Tracer
	ops    metric.Int64Counter
	driver string
}

func newObserver(ins instrument.Instrumentation, driver string) observer {
	ops, err := ins.Meter("identity.outbound.ledger").Int64Counter(
		"otp.ledger.operations",
		metric.WithDescription("OTP ledger operations by result"),
	)
	if err != nil {
		slog.Error("failed to create otp ledger counter", "error", err)
	}

	return observer{
		tracer: ins.Tracer("identity.outbound.ledger"),
		ops:    ops,
		driver: driver,
	}
}

func (o observer) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("ledger.driver", o.driver)))
}

// end records the outcome of op on span and on the operations counter.
func (o observer) end(ctx context.Context, span trace.Span, op string, err error) {
	defer span.End()

	result := resultOf(err)
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if o.ops != nil {
		o.ops.Add(ctx, 1, metric.WithAttributes(
			attribute.String("driver", o.driver),
			attribute.String("op", op),
			attribute.String("result", result),
		))
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entity.ErrOTPNotFound):
		return "not_found"
	case errors.Is(err, entity.ErrOTPExpired):
		return "expired"
	case errors.Is(err, entity.ErrOTPMismatch):
		return "mismatch"
	case errors.Is(err, entity.ErrOTPReplaced):
		return "replaced"
	default:
		return "error"
	}
}
