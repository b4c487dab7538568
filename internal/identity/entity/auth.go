package entity

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrOTPNotFound is returned by the ledger when no record exists for the email.
	ErrOTPNotFound = errors.New("identity: otp record not found")
	// ErrOTPExpired is returned by the ledger when the record is past its expiry.
	// The record has already been removed when this is returned.
	ErrOTPExpired = errors.New("identity: otp record expired")
	// ErrOTPMismatch is returned by the ledger when the candidate code does not match.
	ErrOTPMismatch = errors.New("identity: otp code mismatch")
	// ErrOTPReplaced is returned by Claim when a newer code was issued for the
	// email after the record was read.
	ErrOTPReplaced = errors.New("identity: otp record replaced")
)

// Account is the stored credential record.
type Account struct {
	ID           int64
	Email        string
	PhoneNumber  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// View projects the account without its password hash.
func (a Account) View() AccountView {
	return AccountView{
		ID:          a.ID,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		CreatedAt:   a.CreatedAt,
	}
}

// AccountView is the part of an account that may leave the service.
type AccountView struct {
	ID          int64
	Email       string
	PhoneNumber string
	CreatedAt   time.Time
}

// NormalizeEmail trims surrounding whitespace. Case is preserved: the store
// treats emails as case-sensitive keys.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// OTPRecord is a pending password-reset code for one email.
//
// CodeHash is an HMAC digest; the plaintext code is never stored.
type OTPRecord struct {
	Email      string
	CodeHash   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}

// Expired reports whether now is strictly after ExpiresAt.
func (r OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// State derives the recovery flow state of the record at now.
func (r *OTPRecord) State(now time.Time) FlowState {
	switch {
	case r == nil:
		return FlowStateNone
	case r.Expired(now):
		return FlowStateExpired
	case r.VerifiedAt != nil:
		return FlowStateOTPVerified
	default:
		return FlowStateOTPIssued
	}
}
