package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Channel is the Postgres NOTIFY channel fired by the authz_rules trigger.
const Channel = "authz_rules_changed"

type reloadable interface {
	Reload() error
}

// Reloader listens on Channel and reloads the enforcer whenever authz_rules changes.
type Reloader struct {
	pool    *pgxpool.Pool
	channel string
	target  reloadable

	cancel func()
	done   chan struct{}
}

// NewReloader returns a reloader for target. It does nothing until Start.
func NewReloader(pool *pgxpool.Pool, target reloadable) *Reloader {
	return &Reloader{pool: pool, channel: Channel, target: target}
}

// Start begins listening in the background. A dropped connection is retried
// with a capped fibonacci backoff until Close or ctx cancellation.
func (r *Reloader) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		b := retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(200*time.Millisecond))
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			err := r.listen(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				slog.ErrorContext(ctx, "authz listener failed", "channel", r.channel, "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("authz listener stopped", "error", err)
		}
	}()
}

// Close stops the listener and waits for it to exit.
func (r *Reloader) Close() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	<-r.done
	return nil
}

func (r *Reloader) listen(ctx context.Context) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("authz: acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+r.channel); err != nil {
		return fmt.Errorf("authz: listen %s: %w", r.channel, err)
	}

	// Changes made while the connection was down are picked up here.
	r.reload(ctx, "listen")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		r.reload(ctx, n.Payload)
	}
}

func (r *Reloader) reload(ctx context.Context, reason string) {
	if err := r.target.Reload(); err != nil {
		slog.ErrorContext(ctx, "authz reload failed", "reason", reason, "error", err)
		return
	}
	slog.InfoContext(ctx, "authz policies reloaded", "reason", reason)
}
