// Package mail sends email. Callers depend on the Mail interface and the
// Message payload; SMTP is the only transport.
package mail
