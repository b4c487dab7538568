package usecase

import (
	"context"
	"log/slog"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

type ListInput struct {
	Page   int    `validate:"gte=1"`
	Limit  int    `validate:"gte=1"`
	Status string `validate:"omitempty,oneof=all unread read"`
}

type ListOutput struct {
	Items      []entity.Notification
	Pagination entity.Pagination
	Counts     entity.Counts
}

// List returns one page of the caller's inbox, newest first. Counts.Total
// follows the status filter; Unread and Read cover the whole inbox.
func (s *Usecase) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	ctx, span := s.startSpan(ctx, "List")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if in.Page == 0 {
		in.Page = 1
	}
	if in.Status == "" {
		in.Status = string(entity.StatusAll)
	}
	in.Limit = s.pageLimit(in.Limit)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.list(ctx, clm.UserID, entity.Status(in.Status), in.Page, in.Limit)
}

type ListUnreadInput struct {
	Page  int `validate:"gte=1"`
	Limit int `validate:"gte=1"`
}

func (s *Usecase) ListUnread(ctx context.Context, in ListUnreadInput) (*ListOutput, error) {
	ctx, span := s.startSpan(ctx, "ListUnread")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if in.Page == 0 {
		in.Page = 1
	}
	in.Limit = s.pageLimit(in.Limit)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.list(ctx, clm.UserID, entity.StatusUnread, in.Page, in.Limit)
}

func (s *Usecase) list(ctx context.Context, accountID int64, status entity.Status, page, limit int) (*ListOutput, error) {
	items, err := s.repoDB.ListNotifications(ctx, accountID, status.ReadFlag(), limit, (page-1)*limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list notifications", "account_id", accountID, "status", status, "error", err)
		return nil, goerror.NewServer(err)
	}

	counts, err := s.repoDB.CountNotifications(ctx, accountID, s.recentSince())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count notifications", "account_id", accountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	total := counts.Of(status)
	out := &ListOutput{
		Items:      items,
		Pagination: entity.NewPagination(page, limit, total),
		Counts:     *counts,
	}
	out.Counts.Total = total

	return out, nil
}
