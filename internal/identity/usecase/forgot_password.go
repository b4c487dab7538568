package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

type ForgotPasswordInput struct {
	Email string `validate:"required,email"`
}

// ForgotPassword issues a reset code and emails it. The code is stored
// before the send starts, so a failed delivery still leaves it usable and a
// retry simply replaces it.
func (s *Usecase) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	ctx, span := s.startSpan(ctx, "ForgotPassword")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	acc, err := s.repoDB.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset requested for unknown email", "email", in.Email)
		return goerror.NewBusiness("Email not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	code, err := s.repoLedger.Issue(ctx, acc.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue otp", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoNotifier.SendPasswordResetOTP(ctx, acc.Email, code, s.otpTTL()); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "account_id", acc.ID, "error", err)
		return goerror.NewBusinessWrap(err, "Failed to send OTP", goerror.CodeDeliveryFailed)
	}

	return nil
}
