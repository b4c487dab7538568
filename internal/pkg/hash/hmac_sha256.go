package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HMACSHA256 is a keyed, deterministic digest for short-lived secrets such
// as OTP codes. Being deterministic, two digests of the same code compare
// equal, which lets a store check a candidate without holding the key.
type HMACSHA256 struct {
	key []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{key: []byte(secret)}
}

// Hash returns the lowercase hex digest of plaintext.
func (h *HMACSHA256) Hash(plaintext string) ([]byte, error) {
	return h.sum(plaintext), nil
}

// Verify compares in constant time.
func (h *HMACSHA256) Verify(hashed, plaintext string) bool {
	return hmac.Equal([]byte(hashed), h.sum(plaintext))
}

func (h *HMACSHA256) sum(plaintext string) []byte {
	mac := hmac.New(sha256.New, h.key)
	//nolint:errcheck // hash.Hash writes never fail
	io.WriteString(mac, plaintext)
	return hex.AppendEncode(nil, mac.Sum(nil))
}
