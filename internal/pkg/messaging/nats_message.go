package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

type natsDelivery struct {
	m    *nats.Msg
	at   time.Time
	done atomic.Bool
}

func newNATSDelivery(m *nats.Msg) *natsDelivery {
	return &natsDelivery{m: m, at: time.Now()}
}

func (d *natsDelivery) Subject() string       { return d.m.Subject }
func (d *natsDelivery) Body() []byte          { return d.m.Data }
func (d *natsDelivery) ReceivedAt() time.Time { return d.at }
func (d *natsDelivery) settled() bool         { return d.done.Load() }

// Headers keeps the first value of each NATS header.
func (d *natsDelivery) Headers() Headers {
	if len(d.m.Header) == 0 {
		return nil
	}
	h := make(Headers, len(d.m.Header))
	for k := range d.m.Header {
		h[k] = d.m.Header.Get(k)
	}
	return h
}

func (d *natsDelivery) Ack(ctx context.Context) error  { return d.settle(ctx, d.m.Ack) }
func (d *natsDelivery) Nack(ctx context.Context) error { return d.settle(ctx, d.m.Nak) }

// settle replies at most once. Core NATS messages have no reply subject, so
// the "no reply" errors are expected there.
func (d *natsDelivery) settle(ctx context.Context, reply func(...nats.AckOpt) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.done.Swap(true) {
		return nil
	}
	err := reply()
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}
