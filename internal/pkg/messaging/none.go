package messaging

import "context"

// None accepts and drops every event; its consumers idle until canceled.
// It runs the service without a broker.
type None struct{}

func (None) Publish(ctx context.Context, _ string, _ Envelope) error { return ctx.Err() }

func (None) Consume(ctx context.Context, _ string, _ Handler, _ ...ConsumeOption) error {
	<-ctx.Done()
	return ctx.Err()
}

func (None) Close() error { return nil }
