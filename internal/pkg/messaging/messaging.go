package messaging

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
)

var (
	ErrClosed          = errors.New("messaging: broker closed")
	ErrSubjectRequired = errors.New("messaging: subject is required")
	ErrHandlerRequired = errors.New("messaging: handler is required")
)

// HeaderCorrelationID carries the request correlation id from publisher to
// consumer.
const HeaderCorrelationID = "cID"

// Broker publishes and consumes events.
type Broker interface {
	io.Closer
	Publisher
	Consumer
}

type Publisher interface {
	Publish(ctx context.Context, subject string, env Envelope) error
}

// Consumer delivers events on subject to h. Consume blocks until ctx is
// canceled or the broker closes.
type Consumer interface {
	Consume(ctx context.Context, subject string, h Handler, opts ...ConsumeOption) error
}

// Handler processes one delivery. Under AutoAck a nil error acks and any
// other error asks for redelivery where the driver supports it.
type Handler func(ctx context.Context, d Delivery) error

// Envelope is an outgoing event.
type Envelope struct {
	Body    []byte
	Headers Headers
}

// Delivery is an event handed to a Handler.
type Delivery interface {
	Subject() string
	Body() []byte
	Headers() Headers
	ReceivedAt() time.Time
	Ack(ctx context.Context) error
}

// Nacker is implemented by deliveries that can be redelivered.
type Nacker interface {
	Nack(ctx context.Context) error
}

// Headers are single-valued event headers. They satisfy
// propagation.TextMapCarrier so trace context rides along with the event.
type Headers map[string]string

func (h Headers) Get(key string) string { return h[key] }

func (h Headers) Set(key, value string) { h[key] = value }

func (h Headers) Keys() []string { return slices.Sorted(maps.Keys(h)) }

// Inject writes the trace context of ctx into h, allocating h when nil.
func Inject(ctx context.Context, h Headers) Headers {
	if h == nil {
		h = Headers{}
	}
	otel.GetTextMapPropagator().Inject(ctx, h)
	return h
}

// Extract returns ctx carrying the remote trace context found in h, so a
// consumer span continues the publisher's trace.
func Extract(ctx context.Context, h Headers) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, h)
}
