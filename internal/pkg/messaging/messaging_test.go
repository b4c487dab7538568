package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func consume(t *testing.T, ctx context.Context, b Broker, subject string, h Handler, opts ...ConsumeOption) *sync.WaitGroup {
	t.Helper()
	var wg sync.WaitGroup
	wg.Go(func() { _ = b.Consume(ctx, subject, h, opts...) })
	return &wg
}

func (m *Memory) subscribers(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.topics[subject]
	if t == nil {
		return 0
	}
	n := len(t.plain)
	for _, g := range t.groups {
		n += len(g.members)
	}
	return n
}

func waitSubscribers(t *testing.T, m *Memory, subject string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return m.subscribers(subject) == n }, time.Second, 5*time.Millisecond)
}

func TestMemory_FanOutAndQueueGroup(t *testing.T) {
	// Arrange
	bus := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var plain, a, b atomic.Int32
	count := func(n *atomic.Int32) Handler {
		return func(context.Context, Delivery) error { n.Add(1); return nil }
	}
	wgs := []*sync.WaitGroup{
		consume(t, ctx, bus, "account.registered", count(&plain)),
		consume(t, ctx, bus, "account.registered", count(&a), Queue("inbox")),
		consume(t, ctx, bus, "account.registered", count(&b), Queue("inbox")),
	}
	waitSubscribers(t, bus, "account.registered", 3)

	// Act
	for range 10 {
		require.NoError(t, bus.Publish(context.Background(), "account.registered", Envelope{Body: []byte(`{}`)}))
	}

	// Assert
	assert.Eventually(t, func() bool {
		return plain.Load() == 10 && a.Load()+b.Load() == 10
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), a.Load(), "queue members take turns")

	cancel()
	for _, wg := range wgs {
		wg.Wait()
	}
	require.NoError(t, bus.Close())
	assert.Zero(t, bus.subscribers("account.registered"))
}

func TestMemory_EnvelopeIsCopied(t *testing.T) {
	bus := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan Delivery, 1)
	wg := consume(t, ctx, bus, "s", func(_ context.Context, d Delivery) error {
		got <- d
		return nil
	})
	waitSubscribers(t, bus, "s", 1)

	body := []byte("hello")
	headers := Headers{HeaderCorrelationID: "c-1"}
	require.NoError(t, bus.Publish(context.Background(), "s", Envelope{Body: body, Headers: headers}))
	body[0] = 'X'
	headers[HeaderCorrelationID] = "changed"

	select {
	case d := <-got:
		assert.Equal(t, "hello", string(d.Body()))
		assert.Equal(t, "s", d.Subject())
		assert.Equal(t, "c-1", d.Headers().Get(HeaderCorrelationID))
		assert.False(t, d.ReceivedAt().IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	wg.Wait()
}

func TestMemory_NackRedelivers(t *testing.T) {
	// Arrange
	bus := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var attempts atomic.Int32
	wg := consume(t, ctx, bus, "s", func(context.Context, Delivery) error {
		if attempts.Add(1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	}, AutoAck())
	waitSubscribers(t, bus, "s", 1)

	// Act
	require.NoError(t, bus.Publish(context.Background(), "s", Envelope{Body: []byte("x")}))

	// Assert
	assert.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return attempts.Load() > 3 }, 50*time.Millisecond, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestMemory_NackGivesUp(t *testing.T) {
	bus := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	var attempts atomic.Int32
	wg := consume(t, ctx, bus, "s", func(context.Context, Delivery) error {
		attempts.Add(1)
		return errors.New("always")
	}, AutoAck())
	waitSubscribers(t, bus, "s", 1)

	require.NoError(t, bus.Publish(context.Background(), "s", Envelope{}))

	assert.Eventually(t, func() bool { return attempts.Load() == MemoryMaxAttempts }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return attempts.Load() > MemoryMaxAttempts }, 50*time.Millisecond, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestMemory_Close(t *testing.T) {
	bus := NewMemory()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bus.Consume(context.Background(), "s", func(context.Context, Delivery) error { return nil })
	}()
	waitSubscribers(t, bus, "s", 1)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, <-errCh, ErrClosed)

	assert.ErrorIs(t, bus.Publish(context.Background(), "s", Envelope{}), ErrClosed)
	assert.ErrorIs(t, bus.Consume(context.Background(), "s", func(context.Context, Delivery) error { return nil }), ErrClosed)
	assert.NoError(t, bus.Close())
}

func TestMemory_Validation(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	assert.ErrorIs(t, bus.Publish(context.Background(), "", Envelope{}), ErrSubjectRequired)
	assert.ErrorIs(t, bus.Consume(context.Background(), "", func(context.Context, Delivery) error { return nil }), ErrSubjectRequired)
	assert.ErrorIs(t, bus.Consume(context.Background(), "s", nil), ErrHandlerRequired)
	assert.NoError(t, bus.Publish(context.Background(), "nobody-listens", Envelope{}))
}

func TestNone(t *testing.T) {
	var bus None

	require.NoError(t, bus.Publish(context.Background(), "s", Envelope{Body: []byte("x")}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Consume(ctx, "s", nil), context.DeadlineExceeded)
	assert.ErrorIs(t, bus.Publish(ctx, "s", Envelope{}), context.DeadlineExceeded)
	assert.NoError(t, bus.Close())
}

func TestOpen(t *testing.T) {
	b, err := Open("", NATSConfig{})
	require.NoError(t, err)
	assert.IsType(t, None{}, b)

	b, err = Open(" Memory ", NATSConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)
	require.NoError(t, b.Close())

	_, err = Open("nats", NATSConfig{})
	assert.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = Open("kafka", NATSConfig{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestHeaders_CarryTraceContext(t *testing.T) {
	// Arrange
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	// Act
	h := Inject(ctx, nil)
	got := trace.SpanContextFromContext(Extract(context.Background(), h))

	// Assert
	assert.Contains(t, h.Keys(), "traceparent")
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
	assert.True(t, got.IsRemote())
}

func TestExtract_NoHeaders(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, Extract(ctx, nil))
}

type fakeDelivery struct {
	acked, nacked bool
}

func (f *fakeDelivery) Subject() string       { return "s" }
func (f *fakeDelivery) Body() []byte          { return nil }
func (f *fakeDelivery) Headers() Headers      { return nil }
func (f *fakeDelivery) ReceivedAt() time.Time { return time.Time{} }

func (f *fakeDelivery) Ack(context.Context) error {
	f.acked = true
	return nil
}

func (f *fakeDelivery) Nack(context.Context) error {
	f.nacked = true
	return nil
}

func TestDeliver_AutoAck(t *testing.T) {
	ok := &fakeDelivery{}
	deliver(context.Background(), "test", ok, func(context.Context, Delivery) error { return nil }, true)
	assert.True(t, ok.acked)

	failed := &fakeDelivery{}
	deliver(context.Background(), "test", failed, func(context.Context, Delivery) error { return errors.New("x") }, true)
	assert.True(t, failed.nacked)
	assert.False(t, failed.acked)

	panicked := &fakeDelivery{}
	deliver(context.Background(), "test", panicked, func(context.Context, Delivery) error { panic("boom") }, true)
	assert.True(t, panicked.nacked)

	manual := &fakeDelivery{}
	deliver(context.Background(), "test", manual, func(context.Context, Delivery) error { return nil }, false)
	assert.False(t, manual.acked)
}
