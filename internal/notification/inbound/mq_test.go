package inbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coincraze/authd/internal/notification/usecase"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDelivery struct {
	body    []byte
	headers messaging.Headers
}

func (d fakeDelivery) Subject() string            { return "test" }
func (d fakeDelivery) Body() []byte               { return d.body }
func (d fakeDelivery) Headers() messaging.Headers { return d.headers }
func (d fakeDelivery) ReceivedAt() time.Time      { return created }
func (d fakeDelivery) Ack(context.Context) error  { return nil }

type fakeConsumer struct {
	mu         sync.Mutex
	registered []usecase.ConsumeAccountRegisteredInput
	resets     []usecase.ConsumeAccountPasswordResetInput
	cIDs       []string
	err        error
}

func (f *fakeConsumer) ConsumeAccountRegistered(ctx context.Context, in usecase.ConsumeAccountRegisteredInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeConsumer) ConsumeAccountPasswordReset(ctx context.Context, in usecase.ConsumeAccountPasswordResetInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	return f.err
}

func (f *fakeConsumer) registeredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered)
}

func newHandler(uc ucConsumer) *MQHandler {
	return &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}
}

func TestMQHandler_AccountRegistered(t *testing.T) {
	// Arrange
	uc := &fakeConsumer{}
	h := newHandler(uc)
	msg := fakeDelivery{
		body:    []byte(`{"account_id":"42","email":"a@x.com"}`),
		headers: messaging.Headers{messaging.HeaderCorrelationID: "from-publisher"},
	}

	// Act
	err := h.AccountRegisteredNotification(context.Background(), msg)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []usecase.ConsumeAccountRegisteredInput{{AccountID: 42, Email: "a@x.com"}}, uc.registered)
	assert.Equal(t, []string{"from-publisher"}, uc.cIDs)
}

func TestMQHandler_AccountPasswordReset(t *testing.T) {
	// Arrange
	uc := &fakeConsumer{}
	h := newHandler(uc)
	msg := fakeDelivery{body: []byte(`{"account_id":"7","email":"a@x.com","reset_at":"2026-03-01T12:00:00Z"}`)}

	// Act
	err := h.AccountPasswordResetNotification(context.Background(), msg)

	// Assert
	require.NoError(t, err)
	require.Len(t, uc.resets, 1)
	assert.EqualValues(t, 7, uc.resets[0].AccountID)
	assert.True(t, created.Equal(uc.resets[0].ResetAt))
	assert.Equal(t, []string{"generated"}, uc.cIDs)
}

func TestMQHandler_DropsUndecodableBody(t *testing.T) {
	// Arrange
	uc := &fakeConsumer{}
	h := newHandler(uc)

	// Act
	err := h.AccountRegisteredNotification(context.Background(), fakeDelivery{body: []byte("{")})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, uc.registered)
}

func TestMQHandler_UsecaseErrorIsReturned(t *testing.T) {
	// Arrange
	uc := &fakeConsumer{err: errors.New("db down")}
	h := newHandler(uc)

	// Act
	err := h.AccountPasswordResetNotification(context.Background(), fakeDelivery{body: []byte(`{"account_id":"7","email":"a@x.com"}`)})

	// Assert
	require.Error(t, err)
}

func TestRegisterMQConsumer_OnlyEnabledConsumers(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    consumer_names: [`+event.AccountRegisteredConsumerNotification+`]
    consumer_concurrency: 2
`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	bus := messaging.NewMemory()
	routine := goroutine.NewManager(4)
	uc := &fakeConsumer{}

	// Act
	started := RegisterMQConsumer(ctx, cfg, routine, bus, fixedID("cid"), uc, instrument.NewNoop())

	// Assert
	assert.Equal(t, 1, started)
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, event.AccountRegisteredDestination, messaging.Envelope{
			Body: []byte(`{"account_id":"42","email":"a@x.com"}`),
		})
		return uc.registeredCount() > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	_ = bus.Close()
	_ = routine.Wait()
}
