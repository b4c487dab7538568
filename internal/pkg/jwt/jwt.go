package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSigningKeyMissing    = errors.New("jwt: signing key is not configured")
	ErrSigningKeyTooShort   = errors.New("jwt: HS512 signing key must be at least 64 bytes")
	ErrMissingDependency    = errors.New("jwt: config requires Clock and UUID")
	ErrInvalidSigningMethod = errors.New("jwt: unexpected signing method")

	// ErrTokenExpired and ErrInvalidToken are what Verify reports; the router
	// maps both to 401.
	ErrTokenExpired = errors.New("jwt: token has expired")
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// JWT issues and checks session tokens.
type JWT interface {
	Generate(accountID int64, email string) (string, error)
	Verify(token string) (Claims, error)
}

type Config struct {
	// Secret signs new tokens. At least 64 bytes.
	Secret []byte
	// PreviousSecrets still verify tokens signed before a rotation. Drop a
	// secret once TTL has passed since it was replaced.
	PreviousSecrets [][]byte

	Issuer    string
	Audiences []string
	// TTL defaults to DefaultTTL.
	TTL time.Duration

	Clock interface{ Now() time.Time }
	UUID  interface{ Generate() string }
}

// Claims is the token payload: the registered claims plus the account it
// was issued to. Subject repeats UserID as a decimal string.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"userId,string"`
	UserEmail string `json:"email"`
}

type authKey struct{}

// SetAuth records verified claims on ctx. The router does this for every
// authenticated request.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}

// GetAuth returns the claims of the current caller, or nil when the request
// is anonymous.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(authKey{}).(Claims)
	if !ok {
		return nil
	}
	return &clm
}
