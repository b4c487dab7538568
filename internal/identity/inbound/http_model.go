package inbound

import (
	"net/http"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/identity/usecase"
)

type AccountResponse struct {
	ID          int64     `json:"id,string"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newAccountResponse(v entity.AccountView) AccountResponse {
	return AccountResponse{
		ID:          v.ID,
		Email:       v.Email,
		PhoneNumber: v.PhoneNumber,
		CreatedAt:   v.CreatedAt,
	}
}

type SignupRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type SignupResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

func (SignupResponse) StatusCode() int { return http.StatusCreated }

func (SignupResponse) Message() string { return "User created successfully" }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

func (LoginResponse) Message() string { return "Login successful" }

func newSession(out *usecase.AuthOutput) (string, AccountResponse) {
	return out.Token, newAccountResponse(out.Account)
}

type MeResponse struct {
	Account AccountResponse `json:"account"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordResponse struct{}

func (ForgotPasswordResponse) Message() string { return "OTP sent to your email" }

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct{}

func (VerifyOTPResponse) Message() string { return "OTP verified" }

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type ResetPasswordResponse struct{}

func (ResetPasswordResponse) Message() string { return "Password reset successful" }
