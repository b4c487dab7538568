package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

type VerifyOTPInput struct {
	Email string `validate:"required,email"`
	OTP   string `validate:"required,otp"`
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoLedger.Verify(ctx, in.Email, in.OTP)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entity.ErrOTPNotFound):
		slog.WarnContext(ctx, "otp verify without a pending code", "email", in.Email)
		return goerror.NewBusiness("OTP not found. Please request again.", goerror.CodeNotFound)
	case errors.Is(err, entity.ErrOTPExpired):
		slog.WarnContext(ctx, "otp verify after expiry", "email", in.Email)
		return goerror.NewBusiness("OTP expired. Please request again.", goerror.CodeExpired)
	case errors.Is(err, entity.ErrOTPMismatch):
		slog.WarnContext(ctx, "otp verify with wrong code", "email", in.Email)
		return goerror.NewBusiness("Invalid OTP", goerror.CodeMismatch)
	default:
		slog.ErrorContext(ctx, "failed to verify otp", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}
}
