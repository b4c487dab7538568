package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coincraze/authd/internal/pkg/stacktrace"
)

// settled is implemented by deliveries whose handler already acked or
// nacked them itself.
type settled interface {
	settled() bool
}

// deliver runs h on d, turning a panic into an error, then settles d when
// autoAck is on.
func deliver(ctx context.Context, driver string, d Delivery, h Handler, autoAck bool) {
	err := safeCall(ctx, driver, d, h)
	if err != nil {
		slog.WarnContext(ctx, "message handler failed", "driver", driver, "subject", d.Subject(), "error", err)
	}
	if !autoAck {
		return
	}
	if s, ok := d.(settled); ok && s.settled() {
		return
	}

	var serr error
	switch n, ok := d.(Nacker); {
	case err == nil:
		serr = d.Ack(ctx)
	case ok:
		serr = n.Nack(ctx)
	}
	if serr != nil {
		slog.WarnContext(ctx, "message settle failed", "driver", driver, "subject", d.Subject(), "error", serr)
	}
}

func safeCall(ctx context.Context, driver string, d Delivery, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic in message handler", "driver", driver, "subject", d.Subject(), "panic", r, "stack", stacktrace.Capture())
			err = fmt.Errorf("messaging: handler panic: %v", r)
		}
	}()
	return h(ctx, d)
}
