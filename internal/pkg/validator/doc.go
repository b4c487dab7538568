// Package validator checks request structs and reports failures keyed by the
// field names clients send, with the password, otp and phone rules authd needs.
package validator
