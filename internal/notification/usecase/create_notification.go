package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/idempotency"
)

const (
	permObject    = "notification"
	permCreateAny = "create_any"
)

type CreateInput struct {
	// AccountID targets another account; zero means the caller.
	AccountID int64    `validate:"gte=0"`
	Title     string   `validate:"required,max=200"`
	Message   string   `validate:"required,max=2000"`
	Currency  string   `validate:"required,max=16"`
	Amount    *float64 `validate:"required"`
	// IdempotencyKey deduplicates client retries when set.
	IdempotencyKey string `validate:"omitempty,max=128"`
}

// Create adds an entry to the caller's inbox, or to AccountID's inbox when
// the caller holds the notification/create_any permission.
func (s *Usecase) Create(ctx context.Context, in CreateInput) (*entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "Create")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	in.Currency = strings.TrimSpace(in.Currency)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	if in.Title == "" || in.Message == "" || in.Currency == "" || in.Amount == nil {
		return nil, goerror.NewBusiness("Title, message, currency, and amount are required", goerror.CodeInvalidInput)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	target := clm.UserID
	if in.AccountID != 0 && in.AccountID != clm.UserID {
		if err := s.authorizeCreateAny(ctx, clm.UserID); err != nil {
			return nil, err
		}
		target = in.AccountID
	}

	now := s.clock.Now()
	n := entity.Notification{
		ID:        s.uid.Generate(),
		AccountID: target,
		Title:     in.Title,
		Message:   in.Message,
		Currency:  in.Currency,
		Amount:    *in.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}

	insert := func(ctx context.Context) error { return s.create(ctx, n) }
	if in.IdempotencyKey != "" && s.idemp != nil {
		key := strconv.FormatInt(clm.UserID, 10) + ":" + in.IdempotencyKey
		fp := idempotency.Fingerprint(target, in.Title, in.Message, in.Currency, *in.Amount)
		err = s.idemp.Exec(ctx, key, fp, insert)
		if errors.Is(err, idempotency.ErrLockLost) {
			// the entry is stored; only its dedup record belongs to another attempt
			slog.WarnContext(ctx, "idempotency lock lost before completion", "account_id", clm.UserID, "notification_id", n.ID)
			err = nil
		}
	} else {
		err = insert(ctx)
	}

	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.WarnContext(ctx, "duplicate create notification request", "account_id", clm.UserID, "state", err.Error())
		return nil, goerror.NewBusiness("Request already processed", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrKeyReused):
		slog.WarnContext(ctx, "idempotency key reused with another payload", "account_id", clm.UserID)
		return nil, goerror.NewBusiness("Idempotency-Key was already used for a different request", goerror.CodeInvalidInput)
	case errors.Is(err, goerror.ErrNotFound):
		slog.WarnContext(ctx, "create notification for unknown account", "account_id", clm.UserID, "target_id", target)
		return nil, goerror.NewBusiness("User not found", goerror.CodeNotFound)
	case err != nil:
		slog.ErrorContext(ctx, "failed to repo create notification", "account_id", clm.UserID, "target_id", target, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &n, nil
}

func (s *Usecase) authorizeCreateAny(ctx context.Context, callerID int64) error {
	if s.authz == nil {
		return goerror.NewBusiness("You are not allowed to notify other accounts", goerror.CodeForbidden)
	}

	ok, err := s.authz.Allowed(ctx, strconv.FormatInt(callerID, 10), permObject, permCreateAny)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check permission", "account_id", callerID, "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "create notification for another account denied", "account_id", callerID)
		return goerror.NewBusiness("You are not allowed to notify other accounts", goerror.CodeForbidden)
	}

	return nil
}
