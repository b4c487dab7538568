// Package otp generates short numeric one-time passcodes.
//
// Codes are drawn uniformly from crypto/rand. A 4-digit code has 9000 possible
// values (about 13 bits of entropy), so it is only safe when paired with a
// short validity window and storage of a digest rather than the code itself.
package otp
