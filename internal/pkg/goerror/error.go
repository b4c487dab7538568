// Package goerror is the error vocabulary shared by use cases and transports.
// Use cases return *Error values; the router turns them into the JSON
// envelope and HTTP status, and message consumers log them by Code.
package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels returned by stores. Use cases translate them into *Error.
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict")
)

// Type says who is at fault: the server, a business rule, or the input.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

func (t Type) String() string {
	switch t {
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	case TypeBusiness:
		return "ERROR_TYPE_BUSINESS"
	case TypeValidation:
		return "ERROR_TYPE_VALIDATION"
	}
	return "ERROR_TYPE_UNKNOWN"
}

// Code is the stable, client-visible reason of a failure.
type Code int

const (
	CodeInternal      Code = iota
	CodeInvalidFormat      // body or path parameter cannot be parsed
	CodeInvalidInput       // parsed, but fails validation
	CodeNotFound
	CodeConflict
	CodeUnauthorized
	CodeForbidden
	CodeNoFlow         // a recovery step without the step that opens it
	CodeExpired        // an OTP or verification window has passed
	CodeMismatch       // a presented OTP does not match
	CodeDeliveryFailed // the OTP mail could not be handed to the relay
)

var codes = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:       {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat:  {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:   {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeNotFound:       {"ERROR_CODE_NOT_FOUND", http.StatusNotFound},
	CodeConflict:       {"ERROR_CODE_CONFLICT", http.StatusConflict},
	CodeUnauthorized:   {"ERROR_CODE_UNAUTHORIZED", http.StatusUnauthorized},
	CodeForbidden:      {"ERROR_CODE_FORBIDDEN", http.StatusForbidden},
	CodeNoFlow:         {"ERROR_CODE_NO_FLOW", http.StatusPreconditionFailed},
	CodeExpired:        {"ERROR_CODE_EXPIRED", http.StatusGone},
	CodeMismatch:       {"ERROR_CODE_MISMATCH", http.StatusBadRequest},
	CodeDeliveryFailed: {"ERROR_CODE_DELIVERY_FAILED", http.StatusBadGateway},
}

// String is the wire name; unknown codes read as internal.
func (c Code) String() string {
	if d, ok := codes[c]; ok {
		return d.name
	}
	return codes[CodeInternal].name
}

// Status is the HTTP status the code maps to.
func (c Code) Status() int {
	if d, ok := codes[c]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// Error carries a client-safe message next to the (possibly sensitive) cause.
// Error() reports the cause when there is one; Msg() is what clients see.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
	fields  map[string]string
}

func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	case e.errType == TypeValidation:
		return "Validation violation"
	case e.errType == TypeBusiness:
		return "Business rule violated"
	}
	return "Internal error"
}

func (e *Error) String() string {
	return fmt.Sprintf("%s %s: %s (cause: %v)", e.errType, e.code, e.msg, e.err)
}

func (e *Error) Msg() string               { return e.msg }
func (e *Error) Type() Type                { return e.errType }
func (e *Error) Code() Code                { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) Unwrap() error             { return e.err }
func (e *Error) StatusCode() int           { return e.code.Status() }

// NewServer hides err behind a generic message. The cause stays reachable
// through errors.Is for logging.
func NewServer(err error) error {
	return &Error{err: err, msg: "Internal server error", errType: TypeServer, code: CodeInternal}
}

func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code}
}

// NewBusinessWrap is NewBusiness that keeps err reachable through errors.Is.
func NewBusinessWrap(err error, msg string, code Code) error {
	return &Error{err: err, msg: msg, errType: TypeBusiness, code: code}
}

// NewInvalidInput reports a validation failure. Either err is a validator
// error (the router extracts its fields), or kv lists field/message pairs.
// An odd kv is a programming error and degrades to an invalid-format error.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{err: err, msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput}
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &Error{msg: "Validation error", errType: TypeValidation, code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat reports an unparseable body or parameter. The optional
// message replaces "Invalid request body".
func NewInvalidFormat(msg ...string) error {
	m := "Invalid request body"
	if len(msg) > 0 {
		m = msg[0]
	}
	return &Error{msg: m, errType: TypeValidation, code: CodeInvalidFormat}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.code
	}
	return CodeInternal
}
