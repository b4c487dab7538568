package hash

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Work factors NewBcrypt accepts; anything else becomes bcrypt.DefaultCost.
const (
	MinBcryptCost = 10
	MaxBcryptCost = 14
)

type Bcrypt struct {
	cost   int
	pepper string
}

func NewBcrypt(cost int, pepper string) *Bcrypt {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost, pepper: pepper}
}

func (b *Bcrypt) Cost() int { return b.cost }

// Hash fails with bcrypt.ErrPasswordTooLong past 72 bytes including the
// pepper.
func (b *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext+b.pepper), b.cost)
}

func (b *Bcrypt) Verify(hashed, plaintext string) bool {
	if plaintext == "" || !isBcrypt(hashed) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext+b.pepper)) == nil
}

func isBcrypt(hashed string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hashed, p) {
			return true
		}
	}
	return false
}
