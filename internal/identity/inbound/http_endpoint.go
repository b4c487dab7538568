package inbound

import (
	"github.com/coincraze/authd/internal/identity/usecase"
	"github.com/coincraze/authd/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for credential and recovery workflows.
type HTTPEndpoint struct {
	uc uc
}

// Signup creates an account and starts a session for it.
// @Summary Create account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup payload"
// @Success 201 {object} router.successResponse{data=SignupResponse}
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Email already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/auth/signup [post]
func (h *HTTPEndpoint) Signup(r *router.Request) (any, error) {
	var req SignupRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Signup(r.Context(), usecase.SignupInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		return nil, err
	}

	token, acc := newSession(out)
	return SignupResponse{Token: token, Account: acc}, nil
}

// Login exchanges credentials for a session token.
// @Summary Authenticate
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} router.successResponse{data=LoginResponse}
// @Failure 401 {object} router.errorResponse "Incorrect password"
// @Failure 404 {object} router.errorResponse "Email not found"
// @Router /api/v1/auth/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	out, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	token, acc := newSession(out)
	return LoginResponse{Token: token, Account: acc}, nil
}

// Me returns the account behind the bearer token.
// @Summary Current account
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=MeResponse}
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "User not found"
// @Router /api/v1/auth/me [get]
func (h *HTTPEndpoint) Me(r *router.Request) (any, error) {
	view, err := h.uc.Me(r.Context())
	if err != nil {
		return nil, err
	}

	return MeResponse{Account: newAccountResponse(*view)}, nil
}

// ForgotPassword emails a one-time code to a registered address.
// @Summary Request reset code
// @Tags Auth, Recovery
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Forgot password payload"
// @Success 200 {object} router.successResponse
// @Failure 404 {object} router.errorResponse "Email not found"
// @Failure 502 {object} router.errorResponse "Failed to send OTP"
// @Router /api/v1/auth/forgot-password [post]
func (h *HTTPEndpoint) ForgotPassword(r *router.Request) (any, error) {
	var req ForgotPasswordRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ForgotPassword(r.Context(), usecase.ForgotPasswordInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return ForgotPasswordResponse{}, nil
}

// VerifyOTP checks a submitted code against the pending one.
// @Summary Verify reset code
// @Tags Auth, Recovery
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Verify payload"
// @Success 200 {object} router.successResponse
// @Failure 400 {object} router.errorResponse "Invalid OTP"
// @Failure 404 {object} router.errorResponse "OTP not found"
// @Failure 410 {object} router.errorResponse "OTP expired"
// @Router /api/v1/auth/verify-otp [post]
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	if err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{Email: req.Email, OTP: req.OTP}); err != nil {
		return nil, err
	}

	return VerifyOTPResponse{}, nil
}

// ResetPassword sets a new password for an account with a recovery in progress.
// @Summary Reset password
// @Tags Auth, Recovery
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset payload"
// @Success 200 {object} router.successResponse
// @Failure 404 {object} router.errorResponse "User not found"
// @Failure 412 {object} router.errorResponse "OTP session expired"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/auth/reset-password [post]
func (h *HTTPEndpoint) ResetPassword(r *router.Request) (any, error) {
	var req ResetPasswordRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	if err := h.uc.ResetPassword(r.Context(), usecase.ResetPasswordInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return ResetPasswordResponse{}, nil
}
