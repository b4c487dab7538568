package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

type NATSConfig struct {
	URL string
	// Name shows up in the server's connection monitoring.
	Name string
	// Options are applied after the built-in reconnect policy.
	Options []nats.Option
}

// NATS is the core NATS driver. Delivery is at most once: core subscriptions
// have nothing to redeliver, so Nack is a no-op unless the subject is backed
// by JetStream.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   map[*nats.Subscription]struct{}
	closed bool
}

// NewNATS dials cfg.URL and keeps reconnecting forever, logging each drop.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	opts := append([]nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats connection lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats connection restored", "url", c.ConnectedUrlRedacted())
		}),
	}, cfg.Options...)

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}
	return &NATS{conn: conn, subs: make(map[*nats.Subscription]struct{})}, nil
}

// Publish returns once the server has the event: the connection is flushed
// under ctx.
func (n *NATS) Publish(ctx context.Context, subject string, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return ErrSubjectRequired
	}

	msg := &nats.Msg{Subject: subject, Data: env.Body, Header: make(nats.Header, len(env.Headers))}
	for k, v := range env.Headers {
		msg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("messaging: nats publish %s: %w", subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}
	return nil
}

func (n *NATS) Consume(ctx context.Context, subject string, h Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return ErrSubjectRequired
	}
	if h == nil {
		return ErrHandlerRequired
	}

	cfg := buildConsumeConfig(opts)
	inbox := make(chan *nats.Msg, cfg.workers)

	sub, err := n.conn.QueueSubscribe(subject, cfg.queue, func(m *nats.Msg) {
		select {
		case inbox <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe %s: %w", subject, err)
	}

	var wg sync.WaitGroup
	for range cfg.workers {
		wg.Go(func() {
			for m := range inbox {
				deliver(ctx, DriverNATS, newNATSDelivery(m), h, cfg.autoAck)
			}
		})
	}

	err = n.register(sub)
	if err == nil {
		err = n.conn.Flush()
	}
	if err == nil {
		<-ctx.Done()
		err = ctx.Err()
	}

	// Drain stops the callback before inbox closes; workers finish what
	// they already hold.
	derr := sub.Drain()
	n.unregister(sub)
	close(inbox)
	wg.Wait()
	if errors.Is(derr, nats.ErrBadSubscription) || errors.Is(derr, nats.ErrConnectionClosed) {
		derr = nil
	}
	return errors.Join(err, derr)
}

func (n *NATS) register(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	n.subs[sub] = struct{}{}
	return nil
}

func (n *NATS) unregister(sub *nats.Subscription) {
	n.mu.Lock()
	delete(n.subs, sub)
	n.mu.Unlock()
}

// Close drains every live subscription, then the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := make([]*nats.Subscription, 0, len(n.subs))
	for s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Drain(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
			errs = append(errs, err)
		}
	}
	if err := n.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		errs = append(errs, err)
	}
	n.conn.Close()
	return errors.Join(errs...)
}
