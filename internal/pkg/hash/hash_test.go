package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func passwordHashers(t *testing.T) map[string]Hash {
	t.Helper()

	bc, err := NewPassword(PasswordConfig{Algorithm: AlgorithmBcrypt, BcryptCost: MinBcryptCost, Pepper: "pep"})
	require.NoError(t, err)
	ar, err := NewPassword(PasswordConfig{Algorithm: AlgorithmArgon2id, Pepper: "pep"})
	require.NoError(t, err)

	return map[string]Hash{AlgorithmBcrypt: bc, AlgorithmArgon2id: ar}
}

func TestPasswordHash_RoundTrip(t *testing.T) {
	for name, h := range passwordHashers(t) {
		t.Run(name, func(t *testing.T) {
			// Arrange
			plaintext := "pw1"

			// Act
			first, err := h.Hash(plaintext)
			require.NoError(t, err)
			second, err := h.Hash(plaintext)
			require.NoError(t, err)

			// Assert
			assert.NotEqual(t, plaintext, string(first))
			assert.NotEqual(t, string(first), string(second), "hash must be salted")
			assert.True(t, h.Verify(string(first), plaintext))
			assert.True(t, h.Verify(string(second), plaintext))
			assert.False(t, h.Verify(string(first), "pw2"))
			assert.False(t, h.Verify("", plaintext))
		})
	}
}

func TestPasswordHash_PepperMatters(t *testing.T) {
	// Arrange
	withPepper := NewBcrypt(MinBcryptCost, "pep")
	withoutPepper := NewBcrypt(MinBcryptCost, "")

	// Act
	hashed, err := withPepper.Hash("secret")
	require.NoError(t, err)

	// Assert
	assert.False(t, withoutPepper.Verify(string(hashed), "secret"))
}

func TestNewBcrypt_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(4, "").Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(31, "").Cost())
	assert.Equal(t, 12, NewBcrypt(12, "").Cost())
}

func TestNewPassword_Unknown(t *testing.T) {
	_, err := NewPassword(PasswordConfig{Algorithm: "md5"})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestNewPassword_DefaultsToBcrypt(t *testing.T) {
	h, err := NewPassword(PasswordConfig{})
	require.NoError(t, err)

	hashed, err := h.Hash("pw")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(hashed), "$2a$"))
}

func TestNewPassword_VerifiesAcrossAlgorithms(t *testing.T) {
	// Arrange
	hashers := passwordHashers(t)
	fromBcrypt, err := hashers[AlgorithmBcrypt].Hash("pw1")
	require.NoError(t, err)
	fromArgon, err := hashers[AlgorithmArgon2id].Hash("pw1")
	require.NoError(t, err)

	// Act & Assert
	for name, h := range hashers {
		assert.True(t, h.Verify(string(fromBcrypt), "pw1"), name)
		assert.True(t, h.Verify(string(fromArgon), "pw1"), name)
		assert.False(t, h.Verify(string(fromArgon), "pw2"), name)
	}
}

func TestArgon2id_EncodesParams(t *testing.T) {
	h := NewArgon2id(Argon2Params{MemoryKiB: 1024, Time: 1, Threads: 1}, "")

	hashed, err := h.Hash("pw")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(hashed), "$argon2id$v=19$m=1024,t=1,p=1$"))

	// a hasher tuned differently still verifies the old record
	retuned := NewArgon2id(Argon2Params{MemoryKiB: 2048, Time: 2, Threads: 2}, "")
	assert.True(t, retuned.Verify(string(hashed), "pw"))
}

func TestArgon2id_RejectsMalformed(t *testing.T) {
	h := NewArgon2id(Argon2Params{}, "")

	for _, hashed := range []string{
		"",
		"$argon2id$v=19$bad",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1,x=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!",
	} {
		assert.False(t, h.Verify(hashed, "x"), hashed)
	}
}

func TestBcrypt_RejectsForeignHash(t *testing.T) {
	assert.False(t, NewBcrypt(MinBcryptCost, "").Verify("$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "x"))
}

func TestHMACSHA256(t *testing.T) {
	// Arrange
	h := NewHMACSHA256("server-secret")

	// Act
	digest, err := h.Hash("4821")
	require.NoError(t, err)

	// Assert
	again, err := h.Hash("4821")
	require.NoError(t, err)
	assert.Equal(t, digest, again, "hmac is deterministic")
	assert.Len(t, digest, 64)
	assert.True(t, h.Verify(string(digest), "4821"))
	assert.False(t, h.Verify(string(digest), "4822"))
	assert.False(t, NewHMACSHA256("other").Verify(string(digest), "4821"))
}

func TestPassword_NeedsRehash(t *testing.T) {
	// Arrange
	hashers := passwordHashers(t)
	fromBcrypt, err := hashers[AlgorithmBcrypt].Hash("pw")
	require.NoError(t, err)
	fromArgon, err := hashers[AlgorithmArgon2id].Hash("pw")
	require.NoError(t, err)
	costlier, err := NewPassword(PasswordConfig{BcryptCost: MinBcryptCost + 1, Pepper: "pep"})
	require.NoError(t, err)

	bc := hashers[AlgorithmBcrypt].(Rehasher)
	ar := hashers[AlgorithmArgon2id].(Rehasher)

	// Assert
	assert.False(t, bc.NeedsRehash(string(fromBcrypt)))
	assert.True(t, bc.NeedsRehash(string(fromArgon)))
	assert.False(t, ar.NeedsRehash(string(fromArgon)))
	assert.True(t, ar.NeedsRehash(string(fromBcrypt)))
	assert.True(t, costlier.(Rehasher).NeedsRehash(string(fromBcrypt)))
}
