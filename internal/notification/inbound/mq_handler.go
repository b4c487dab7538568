package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coincraze/authd/internal/notification/usecase"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) AccountRegisteredNotification(ctx context.Context, d messaging.Delivery) error {
	return handleEvent(ctx, h, "AccountRegisteredNotification", d,
		func(ctx context.Context, ev event.AccountRegisteredMessage) error {
			return h.uc.ConsumeAccountRegistered(ctx, usecase.ConsumeAccountRegisteredInput{
				AccountID: ev.AccountID,
				Email:     ev.Email,
			})
		})
}

func (h *MQHandler) AccountPasswordResetNotification(ctx context.Context, d messaging.Delivery) error {
	return handleEvent(ctx, h, "AccountPasswordResetNotification", d,
		func(ctx context.Context, ev event.AccountPasswordResetMessage) error {
			return h.uc.ConsumeAccountPasswordReset(ctx, usecase.ConsumeAccountPasswordResetInput{
				AccountID: ev.AccountID,
				Email:     ev.Email,
				ResetAt:   ev.ResetAt,
			})
		})
}

// handleEvent continues the publisher's trace and correlation id, decodes
// the body into E and hands it to apply. A body that does not decode is
// logged and dropped: redelivering it cannot succeed. An apply error is
// returned so the broker redelivers.
func handleEvent[E any](ctx context.Context, h *MQHandler, name string, d messaging.Delivery, apply func(context.Context, E) error) error {
	headers := d.Headers()
	ctx = messaging.Extract(ctx, headers)

	cID := headers.Get(messaging.HeaderCorrelationID)
	if cID == "" {
		cID = h.uuid.Generate()
	}
	ctx = instrument.SetCorrelationID(ctx, cID)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, name)
	defer span.End()
	span.SetAttributes(attribute.String("messaging.destination.name", d.Subject()))

	slog.InfoContext(ctx, "event received", "consumer", name, "subject", d.Subject())

	var ev E
	if err := json.Unmarshal(d.Body(), &ev); err != nil {
		slog.ErrorContext(ctx, "dropping undecodable event", "consumer", name, "msg_body", string(d.Body()), "error", err)
		span.SetStatus(codes.Error, "undecodable event")
		return nil
	}

	if err := apply(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "failed to consume event", "consumer", name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
