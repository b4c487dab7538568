package db

import (
	"context"
	"errors"

	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "identity.outbound.db"

// querier is satisfied by *pgxpool.Pool and by pgxmock in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the Postgres account store.
type DB struct {
	q      querier
	tracer trace.Tracer
}

func NewDB(q querier, ins instrument.Instrumentation) *DB {
	return &DB{q: q, tracer: ins.Tracer(tracerName)}
}

// mapError turns driver errors into the sentinels the usecase layer checks.
// Anything unrecognised passes through unchanged.
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return goerror.ErrConflict
	case pgerrcode.ForeignKeyViolation:
		return goerror.ErrNotFound
	}
	return err
}

func (s *DB) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemPostgreSQL,
			attribute.String("db.operation.name", op),
		),
	)
}

// endSpan records err unless it is an expected outcome such as a missing row.
func (s *DB) endSpan(span trace.Span, err error) {
	expected := errors.Is(err, goerror.ErrNotFound) || errors.Is(err, goerror.ErrConflict)
	if err != nil && !expected {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
