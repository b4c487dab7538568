package inbound

import (
	"context"
	"net/http"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/identity/usecase"
	"github.com/coincraze/authd/internal/pkg/router"
)

type uc interface {
	Signup(ctx context.Context, in usecase.SignupInput) (*usecase.AuthOutput, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.AuthOutput, error)
	Me(ctx context.Context) (*entity.AccountView, error)

	ForgotPassword(ctx context.Context, in usecase.ForgotPasswordInput) error
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) error
	ResetPassword(ctx context.Context, in usecase.ResetPasswordInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	public := func(path string, h router.Handler) {
		r.POST(path, h)
		r.Public(http.MethodPost, path)
	}

	// Credentials
	public("/api/v1/auth/signup", end.Signup)
	public("/api/v1/auth/login", end.Login)

	// Password recovery
	public("/api/v1/auth/forgot-password", end.ForgotPassword)
	public("/api/v1/auth/verify-otp", end.VerifyOTP)
	public("/api/v1/auth/reset-password", end.ResetPassword)

	// Session (need authenticated)
	r.GET("/api/v1/auth/me", end.Me)
}
