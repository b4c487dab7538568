package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL matches the session length clients expect: one day.
const DefaultTTL = 24 * time.Hour

const minSecretLen = 64

// Symmetric signs with HS512.
type Symmetric struct {
	keys      [][]byte // keys[0] signs; all of them verify
	issuer    string
	audiences []string
	ttl       time.Duration
	clock     interface{ Now() time.Time }
	uuid      interface{ Generate() string }
	parser    *libJWT.Parser
}

// NewHS512 refuses a missing or short secret, so a misconfigured process
// stops at startup instead of issuing weak tokens. Previous secrets are held
// to the same bar.
func NewHS512(cfg Config) (*Symmetric, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSigningKeyMissing
	}
	keys := append([][]byte{cfg.Secret}, cfg.PreviousSecrets...)
	for _, k := range keys {
		if len(k) < minSecretLen {
			return nil, ErrSigningKeyTooShort
		}
	}
	if cfg.Clock == nil || cfg.UUID == nil {
		return nil, ErrMissingDependency
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Symmetric{
		keys:      keys,
		issuer:    cfg.Issuer,
		audiences: cfg.Audiences,
		ttl:       ttl,
		clock:     cfg.Clock,
		uuid:      cfg.UUID,
		parser: libJWT.NewParser(
			libJWT.WithIssuer(cfg.Issuer),
			libJWT.WithAudience(cfg.Audiences...),
			libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
			libJWT.WithIssuedAt(),
			libJWT.WithExpirationRequired(),
			libJWT.WithTimeFunc(cfg.Clock.Now),
		),
	}, nil
}

func (s *Symmetric) TTL() time.Duration {
	return s.ttl
}

func (s *Symmetric) Generate(accountID int64, email string) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        s.uuid.Generate(),
			Subject:   strconv.FormatInt(accountID, 10),
			Issuer:    s.issuer,
			Audience:  s.audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:    accountID,
		UserEmail: email,
	}

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, claims).SignedString(s.keys[0])
}

// Verify returns ErrTokenExpired for an expired token and an error wrapping
// ErrInvalidToken for anything else that fails: signature, issuer,
// audience, algorithm, or a subject that disagrees with the account id.
func (s *Symmetric) Verify(token string) (Claims, error) {
	var (
		claims Claims
		err    error
	)
	for _, key := range s.keys {
		claims = Claims{}
		_, err = s.parser.ParseWithClaims(token, &claims, func(t *libJWT.Token) (any, error) {
			if _, ok := t.Method.(*libJWT.SigningMethodHMAC); !ok {
				return nil, ErrInvalidSigningMethod
			}
			return key, nil
		})
		if !errors.Is(err, libJWT.ErrTokenSignatureInvalid) {
			break
		}
	}

	switch {
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case claims.Subject != strconv.FormatInt(claims.UserID, 10):
		return Claims{}, fmt.Errorf("%w: subject does not match account", ErrInvalidToken)
	}
	return claims, nil
}
