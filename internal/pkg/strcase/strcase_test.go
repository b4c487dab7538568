package strcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Email":        "email",
		"PhoneNumber":  "phone_number",
		"UserID":       "user_id",
		"HTTPServer":   "http_server",
		"NewPassword":  "new_password",
		"Page2Size":    "page2_size",
		"AccountIDRef": "account_id_ref",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToLowerSnake(in), in)
	}
}

func TestToLowerCamel(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"Email":          "email",
		"PhoneNumber":    "phoneNumber",
		"NewPassword":    "newPassword",
		"ID":             "id",
		"HTTPServer":     "httpServer",
		"OTP":            "otp",
		"IdempotencyKey": "idempotencyKey",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToLowerCamel(in), in)
	}
}
