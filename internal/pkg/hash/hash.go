package hash

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hash is a one-way function: Hash output is stored, Verify checks a
// plaintext candidate against it.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var ErrUnknownAlgorithm = errors.New("hash: unknown password algorithm")

// Rehasher is implemented by password hashers that can tell when a stored
// hash no longer matches what Hash would produce today.
type Rehasher interface {
	NeedsRehash(hashed string) bool
}

type PasswordConfig struct {
	// Algorithm picks the hasher for new hashes: "bcrypt" (default) or
	// "argon2id".
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Params
	// Pepper is a server-side secret appended to every plaintext. It never
	// reaches the database.
	Pepper string
}

// NewPassword hashes with the configured algorithm but verifies either
// format, so switching algorithms does not lock out existing accounts.
// NeedsRehash flags their hashes for an upgrade at the next login.
func NewPassword(cfg PasswordConfig) (Hash, error) {
	bc := NewBcrypt(cfg.BcryptCost, cfg.Pepper)
	ar := NewArgon2id(cfg.Argon2, cfg.Pepper)

	switch strings.ToLower(strings.TrimSpace(cfg.Algorithm)) {
	case "", AlgorithmBcrypt:
		return &password{primary: bc, bcrypt: bc, argon2: ar}, nil
	case AlgorithmArgon2id:
		return &password{primary: ar, bcrypt: bc, argon2: ar}, nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

type password struct {
	primary Hash
	bcrypt  *Bcrypt
	argon2  *Argon2id
}

func (p *password) Hash(plaintext string) ([]byte, error) {
	return p.primary.Hash(plaintext)
}

func (p *password) Verify(hashed, plaintext string) bool {
	if strings.HasPrefix(hashed, argon2Prefix) {
		return p.argon2.Verify(hashed, plaintext)
	}
	return p.bcrypt.Verify(hashed, plaintext)
}

// NeedsRehash is true for a hash from the other algorithm, or a bcrypt hash
// of a different cost than the configured one.
func (p *password) NeedsRehash(hashed string) bool {
	if p.primary == p.argon2 {
		return !strings.HasPrefix(hashed, argon2Prefix)
	}
	if !isBcrypt(hashed) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	return err == nil && cost != p.bcrypt.cost
}
