package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

const msgNotFound = "Notification not found"

type IDInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) Get(ctx context.Context, in IDInput) (*entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	n, err := s.repoDB.GetNotification(ctx, clm.UserID, in.ID)
	return s.single(ctx, "get", clm.UserID, in.ID, n, err)
}

func (s *Usecase) MarkRead(ctx context.Context, in IDInput) (*entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "MarkRead")
	defer span.End()

	return s.setRead(ctx, in, true)
}

func (s *Usecase) MarkUnread(ctx context.Context, in IDInput) (*entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "MarkUnread")
	defer span.End()

	return s.setRead(ctx, in, false)
}

func (s *Usecase) setRead(ctx context.Context, in IDInput, read bool) (*entity.Notification, error) {
	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	n, err := s.repoDB.SetNotificationRead(ctx, clm.UserID, in.ID, read, s.clock.Now())
	return s.single(ctx, "set read", clm.UserID, in.ID, n, err)
}

func (s *Usecase) Delete(ctx context.Context, in IDInput) (*entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	n, err := s.repoDB.DeleteNotification(ctx, clm.UserID, in.ID)
	return s.single(ctx, "delete", clm.UserID, in.ID, n, err)
}

// single maps the outcome of a by-id repository call. Entries owned by
// another account read as not found.
func (s *Usecase) single(ctx context.Context, op string, accountID, id int64, n *entity.Notification, err error) (*entity.Notification, error) {
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "notification not found", "op", op, "account_id", accountID, "notification_id", id)
		return nil, goerror.NewBusiness(msgNotFound, goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo notification", "op", op, "account_id", accountID, "notification_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	return n, nil
}

func (s *Usecase) MarkAllRead(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "MarkAllRead")
	defer span.End()

	return s.setAllRead(ctx, true)
}

func (s *Usecase) MarkAllUnread(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "MarkAllUnread")
	defer span.End()

	return s.setAllRead(ctx, false)
}

func (s *Usecase) setAllRead(ctx context.Context, read bool) (int64, error) {
	clm, err := s.requireAuth(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.repoDB.SetAllNotificationsRead(ctx, clm.UserID, read, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo set all notifications read", "account_id", clm.UserID, "read", read, "error", err)
		return 0, goerror.NewServer(err)
	}

	return n, nil
}

func (s *Usecase) ClearAll(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "ClearAll")
	defer span.End()

	return s.clear(ctx, false)
}

func (s *Usecase) ClearRead(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "ClearRead")
	defer span.End()

	return s.clear(ctx, true)
}

func (s *Usecase) clear(ctx context.Context, onlyRead bool) (int64, error) {
	clm, err := s.requireAuth(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.repoDB.DeleteNotifications(ctx, clm.UserID, onlyRead)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete notifications", "account_id", clm.UserID, "only_read", onlyRead, "error", err)
		return 0, goerror.NewServer(err)
	}

	return n, nil
}
