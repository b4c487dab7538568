package otp

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strconv"
)

// ErrInvalidDigits is returned by NewNumeric for a digit count outside 4..9.
var ErrInvalidDigits = errors.New("otp: digits must be between 4 and 9")

// Generator produces one-time passcodes.
type Generator interface {
	// Generate returns a new code.
	Generate() (string, error)
}

// Numeric generates fixed-width decimal codes without a leading zero.
//
// For 4 digits the range is [1000, 9999].
type Numeric struct {
	min  int64
	span *big.Int
	rand io.Reader
}

// NewNumeric returns a Numeric generator for the given number of digits.
func NewNumeric(digits int) (*Numeric, error) {
	if digits < 4 || digits > 9 {
		return nil, ErrInvalidDigits
	}

	lo := int64(1)
	for range digits - 1 {
		lo *= 10
	}
	hi := lo*10 - 1

	return &Numeric{
		min:  lo,
		span: big.NewInt(hi - lo + 1),
		rand: rand.Reader,
	}, nil
}

// Generate returns a uniformly distributed code.
func (n *Numeric) Generate() (string, error) {
	v, err := rand.Int(n.rand, n.span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.min+v.Int64(), 10), nil
}
