package mq

import (
	"context"
	"encoding/json"

	"github.com/coincraze/authd/internal/identity/usecase"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishAccountRegistered(ctx context.Context, msg usecase.AccountRegisteredEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishAccountRegistered")
	defer span.End()

	return m.publish(ctx, span, event.AccountRegisteredDestination, event.AccountRegisteredMessage{
		AccountID: msg.AccountID,
		Email:     msg.Email,
	})
}

func (m *Messaging) PublishAccountPasswordReset(ctx context.Context, msg usecase.AccountPasswordResetEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishAccountPasswordReset")
	defer span.End()

	return m.publish(ctx, span, event.AccountPasswordResetDestination, event.AccountPasswordResetMessage{
		AccountID: msg.AccountID,
		Email:     msg.Email,
		ResetAt:   msg.ResetAt,
	})
}

func (m *Messaging) publish(ctx context.Context, span trace.Span, destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	headers := messaging.Inject(ctx, messaging.Headers{
		messaging.HeaderCorrelationID: instrument.GetCorrelationID(ctx),
	})
	if err := m.client.Publish(ctx, destination, messaging.Envelope{Body: body, Headers: headers}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
