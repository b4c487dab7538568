package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/messaging"
	"github.com/coincraze/authd/internal/pkg/uid"
	"github.com/coincraze/authd/internal/shared/event"
)

const defaultConsumerConcurrency = 10

// RegisterMQConsumer starts one goroutine per consumer listed in
// modules.notification.consumer_names. It reports how many were started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) int {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = defaultConsumerConcurrency
	}

	var consumers = []struct {
		name    string // also the queue group
		topic   string // destination where publisher sent message
		handler messaging.Handler
	}{
		{
			name:    event.AccountRegisteredConsumerNotification,
			topic:   event.AccountRegisteredDestination,
			handler: mqHandler.AccountRegisteredNotification,
		},
		{
			name:    event.AccountPasswordResetConsumerNotification,
			topic:   event.AccountPasswordResetDestination,
			handler: mqHandler.AccountPasswordResetNotification,
		},
	}

	started := 0
	for _, c := range consumers {
		if !slices.Contains(enableConsumerNames, c.name) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name)
			return consumer.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.Queue(c.name),
				messaging.AutoAck(),
				messaging.Workers(concurrency),
			)
		})
		if !ok {
			slog.WarnContext(ctx, "consumer not started", "consumer", c.name)
			continue
		}
		started++
	}

	return started
}
