package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/hash"
)

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Login exchanges email and password for a session token. An unknown email
// is reported as 404 and a wrong password as 401, in that order.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*AuthOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	acc, err := s.repoDB.GetAccountByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, goerror.ErrNotFound):
		slog.WarnContext(ctx, "login for unknown email", "email", in.Email)
		return nil, goerror.NewBusiness("Email not found", goerror.CodeNotFound)
	case err != nil:
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.password.Verify(acc.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "login with wrong password", "account_id", acc.ID)
		return nil, goerror.NewBusiness("Incorrect password", goerror.CodeUnauthorized)
	}
	s.upgradePasswordHash(ctx, acc, in.Password)

	out, err := s.issueSession(acc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session token", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	return out, nil
}

// upgradePasswordHash rehashes a verified password whose stored hash was
// made with another algorithm or cost. Failure leaves the old hash in place
// and does not fail the login.
func (s *Usecase) upgradePasswordHash(ctx context.Context, acc *entity.Account, plaintext string) {
	r, ok := s.password.(hash.Rehasher)
	if !ok || !r.NeedsRehash(acc.PasswordHash) {
		return
	}

	hashed, err := s.password.Hash(plaintext)
	if err == nil {
		err = s.repoDB.UpdateAccountPassword(ctx, acc.ID, string(hashed), s.clock.Now())
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to upgrade password hash", "account_id", acc.ID, "error", err)
		return
	}
	slog.InfoContext(ctx, "password hash upgraded", "account_id", acc.ID)
}
