package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goerror"
)

type ResetPasswordInput struct {
	Email       string `validate:"required,email"`
	NewPassword string `validate:"required,password"`
}

// ResetPassword replaces the account password when a recovery flow is in
// progress for the email. With modules.identity.otp.require_verified set, the
// code must have been verified, and within verified_window_minutes when that
// is positive.
//
// The record is claimed before the password is written, so one recovery flow
// resets the password at most once. A failure before the claim leaves both
// the record and the stored hash untouched.
func (s *Usecase) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ctx, span := s.startSpan(ctx, "ResetPassword")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if in.Email == "" || strings.TrimSpace(in.NewPassword) == "" {
		return goerror.NewBusiness("Email and new password are required", goerror.CodeInvalidInput)
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	rec, err := s.repoLedger.Peek(ctx, in.Email)
	if errors.Is(err, entity.ErrOTPNotFound) || errors.Is(err, entity.ErrOTPExpired) {
		slog.WarnContext(ctx, "password reset without a live otp", "email", in.Email, "because", err)
		return goerror.NewBusiness("OTP session expired. Try again.", goerror.CodeNoFlow)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to peek otp", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.ensureVerified(ctx, rec); err != nil {
		return err
	}

	acc, err := s.repoDB.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset for unknown account", "email", in.Email)
		return goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	newHash, err := s.password.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	err = s.repoLedger.Claim(ctx, rec)
	if errors.Is(err, entity.ErrOTPNotFound) || errors.Is(err, entity.ErrOTPExpired) || errors.Is(err, entity.ErrOTPReplaced) {
		slog.WarnContext(ctx, "otp record gone before password reset", "account_id", acc.ID, "because", err)
		return goerror.NewBusiness("OTP session expired. Try again.", goerror.CodeNoFlow)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to claim otp", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	now := s.clock.Now()
	err = s.repoDB.UpdateAccountPassword(ctx, acc.ID, string(newHash), now)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account vanished during password reset", "account_id", acc.ID)
		return goerror.NewBusiness("User not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update account password, otp already claimed", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMessaging.PublishAccountPasswordReset(ctx, AccountPasswordResetEvent{
		AccountID: acc.ID,
		Email:     acc.Email,
		ResetAt:   now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account password reset", "account_id", acc.ID, "error", err)
	}

	return nil
}

func (s *Usecase) ensureVerified(ctx context.Context, rec *entity.OTPRecord) error {
	if !s.cfg.GetBool("modules.identity.otp.require_verified") {
		return nil
	}

	if rec.VerifiedAt == nil {
		slog.WarnContext(ctx, "password reset before otp verification", "email", rec.Email)
		return goerror.NewBusiness("OTP not verified", goerror.CodeNoFlow)
	}

	window := s.cfg.GetMinute("modules.identity.otp.verified_window_minutes")
	if window <= 0 || s.clock.Now().Sub(*rec.VerifiedAt) <= window {
		return nil
	}

	if err := s.repoLedger.Consume(ctx, rec.Email); err != nil {
		slog.ErrorContext(ctx, "failed to consume stale otp", "email", rec.Email, "error", err)
		return goerror.NewServer(err)
	}

	slog.WarnContext(ctx, "password reset after verification window", "email", rec.Email)
	return goerror.NewBusiness("OTP verification expired. Please request again.", goerror.CodeExpired)
}
