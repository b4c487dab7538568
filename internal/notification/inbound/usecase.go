package inbound

import (
	"context"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/notification/usecase"
)

type ucConsumer interface {
	ConsumeAccountRegistered(ctx context.Context, in usecase.ConsumeAccountRegisteredInput) error
	ConsumeAccountPasswordReset(ctx context.Context, in usecase.ConsumeAccountPasswordResetInput) error
}

type ucStream interface {
	StreamNotifications(ctx context.Context, accountID int64) <-chan entity.Notification
}

type uc interface {
	ucStream

	List(ctx context.Context, in usecase.ListInput) (*usecase.ListOutput, error)
	ListUnread(ctx context.Context, in usecase.ListUnreadInput) (*usecase.ListOutput, error)
	Get(ctx context.Context, in usecase.IDInput) (*entity.Notification, error)
	MarkRead(ctx context.Context, in usecase.IDInput) (*entity.Notification, error)
	MarkUnread(ctx context.Context, in usecase.IDInput) (*entity.Notification, error)
	MarkAllRead(ctx context.Context) (int64, error)
	MarkAllUnread(ctx context.Context) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, in usecase.IDInput) (*entity.Notification, error)
	Create(ctx context.Context, in usecase.CreateInput) (*entity.Notification, error)
	Stats(ctx context.Context) (*usecase.StatsOutput, error)
}
