// Package clock lets OTP expiry, token lifetimes and inbox timestamps run
// against a controllable time source in tests.
package clock
