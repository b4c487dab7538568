package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/idempotency"
)

type ConsumeAccountRegisteredInput struct {
	AccountID int64  `validate:"required,gt=0"`
	Email     string `validate:"required,email"`
}

// ConsumeAccountRegistered writes the welcome entry. Malformed events are
// dropped; store failures are returned so the broker can redeliver. With
// idempotency enabled an account gets one welcome entry however often the
// event is delivered.
func (s *Usecase) ConsumeAccountRegistered(ctx context.Context, in ConsumeAccountRegisteredInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccountRegistered")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	_, err := s.createSystem(ctx, in.AccountID, entity.KindWelcome, eventKey(entity.KindWelcome, in.AccountID))
	return err
}

type ConsumeAccountPasswordResetInput struct {
	AccountID int64  `validate:"required,gt=0"`
	Email     string `validate:"required,email"`
	ResetAt   time.Time
}

// ConsumeAccountPasswordReset writes the security entry and mails the owner.
// A failed mail is logged only. A redelivered event, recognised by account
// and ResetAt, neither writes nor mails again.
func (s *Usecase) ConsumeAccountPasswordReset(ctx context.Context, in ConsumeAccountPasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeAccountPasswordReset")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	key := ""
	if !in.ResetAt.IsZero() {
		key = eventKey(entity.KindPasswordReset, in.AccountID, strconv.FormatInt(in.ResetAt.UnixNano(), 10))
	}

	created, err := s.createSystem(ctx, in.AccountID, entity.KindPasswordReset, key)
	if err != nil || !created {
		return err
	}

	at := in.ResetAt
	if at.IsZero() {
		at = s.clock.Now()
	}
	if s.repoMail != nil {
		if err := s.repoMail.SendPasswordChanged(ctx, in.Email, at); err != nil {
			slog.ErrorContext(ctx, "failed to send password changed email", "account_id", in.AccountID, "error", err)
		}
	}

	return nil
}

func eventKey(kind entity.Kind, accountID int64, extra ...string) string {
	key := "event:" + string(kind) + ":" + strconv.FormatInt(accountID, 10)
	for _, e := range extra {
		key += ":" + e
	}
	return key
}

// createSystem writes a kind entry for accountID and reports whether it did.
// A non-empty key deduplicates the write through idempotency.
func (s *Usecase) createSystem(ctx context.Context, accountID int64, kind entity.Kind, key string) (bool, error) {
	now := s.clock.Now()
	n := entity.Notification{
		ID:        s.uid.Generate(),
		AccountID: accountID,
		Title:     kind.Title(),
		Message:   kind.Message(),
		Currency:  entity.SystemCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	insert := func(ctx context.Context) error { return s.create(ctx, n) }

	var err error
	if key != "" && s.idemp != nil {
		err = s.idemp.Exec(ctx, key, string(kind), insert)
	} else {
		err = insert(ctx)
	}

	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.InfoContext(ctx, "duplicate account event skipped", "account_id", accountID, "kind", kind)
		return false, nil
	case errors.Is(err, idempotency.ErrLockLost):
		slog.WarnContext(ctx, "idempotency lock lost before completion", "account_id", accountID, "kind", kind)
		return true, nil
	case errors.Is(err, goerror.ErrNotFound):
		slog.WarnContext(ctx, "account of event does not exist", "account_id", accountID, "kind", kind)
		return false, nil
	case err != nil:
		slog.ErrorContext(ctx, "failed to repo create notification", "account_id", accountID, "kind", kind, "error", err)
		return false, err
	}

	return true, nil
}
