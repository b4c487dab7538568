package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

type SignupInput struct {
	Email       string `validate:"required,email"`
	PhoneNumber string `validate:"required,phone"`
	Password    string `validate:"required,password"`
}

func (s *Usecase) Signup(ctx context.Context, in SignupInput) (*AuthOutput, error) {
	ctx, span := s.startSpan(ctx, "Signup")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	_, err := s.repoDB.GetAccountByEmail(ctx, in.Email)
	if err == nil {
		slog.WarnContext(ctx, "signup for existing email", "email", in.Email)
		return nil, goerror.NewBusiness("Email already exists", goerror.CodeConflict)
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	hashed, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	acc := entity.Account{
		ID:           s.uid.Generate(),
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repoDB.CreateAccount(ctx, acc)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "signup lost the unique email race", "email", in.Email)
		return nil, goerror.NewBusiness("Email already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create account", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	out, err := s.issueSession(&acc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session token", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishAccountRegistered(ctx, AccountRegisteredEvent{
		AccountID: acc.ID,
		Email:     acc.Email,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account registered", "account_id", acc.ID, "error", err)
	}

	return out, nil
}
