package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/identity/outbound/ledger"
	"github.com/coincraze/authd/internal/pkg/clock"
	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/hash"
	"github.com/coincraze/authd/internal/pkg/instrument"
	"github.com/coincraze/authd/internal/pkg/jwt"
	"github.com/coincraze/authd/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	mu       sync.Mutex
	byEmail   map[string]entity.Account
	err       error
	updateErr error
	createFn  func(entity.Account) error
}

func newFakeDB() *fakeDB {
	return &fakeDB{byEmail: map[string]entity.Account{}}
}

func (f *fakeDB) GetAccountByEmail(_ context.Context, email string) (*entity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.byEmail[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &acc, nil
}

func (f *fakeDB) GetAccountByID(_ context.Context, id int64) (*entity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	for _, acc := range f.byEmail {
		if acc.ID == id {
			return &acc, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) CreateAccount(_ context.Context, acc entity.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createFn != nil {
		if err := f.createFn(acc); err != nil {
			return err
		}
	}
	if _, ok := f.byEmail[acc.Email]; ok {
		return goerror.ErrConflict
	}
	f.byEmail[acc.Email] = acc
	return nil
}

func (f *fakeDB) UpdateAccountPassword(_ context.Context, id int64, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}

	for email, acc := range f.byEmail {
		if acc.ID == id {
			acc.PasswordHash = hash
			acc.UpdatedAt = at
			f.byEmail[email] = acc
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (f *fakeDB) hashOf(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byEmail[email].PasswordHash
}

type sentOTP struct {
	email    string
	code     string
	validFor time.Duration
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (f *fakeNotifier) SendPasswordResetOTP(_ context.Context, email, code string, validFor time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentOTP{email: email, code: code, validFor: validFor})
	return nil
}

func (f *fakeNotifier) last(t *testing.T) sentOTP {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeMessaging struct {
	mu         sync.Mutex
	registered []AccountRegisteredEvent
	resets     []AccountPasswordResetEvent
	err        error
}

func (f *fakeMessaging) PublishAccountRegistered(_ context.Context, msg AccountRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, msg)
	return f.err
}

func (f *fakeMessaging) PublishAccountPasswordReset(_ context.Context, msg AccountPasswordResetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, msg)
	return f.err
}

type counterID struct {
	mu sync.Mutex
	n  int64
}

func (c *counterID) Generate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return 1000 + c.n
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type harness struct {
	uc       *Usecase
	db       *fakeDB
	ledger   *ledger.Memory
	notifier *fakeNotifier
	mq       *fakeMessaging
	clock    *clock.Manual
}

const defaultYAML = `
modules:
  identity:
    otp:
      ttl_minutes: 10
      require_verified: true
      verified_window_minutes: 5
`

func newHarness(t *testing.T, yaml string) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	clk := clock.NewManual(time.Now().UTC().Truncate(time.Second))

	v, err := validator.NewV10Validator(validator.WithPasswordMinLength(1), validator.WithCamelCaseFields())
	require.NoError(t, err)

	issuer, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("s", 64)),
		Issuer: "authd",
		Clock:  clk,
		UUID:   fixedID("jti"),
	})
	require.NoError(t, err)

	mem, err := ledger.NewMemory(ledger.Config{
		TTL:       10 * time.Minute,
		Generator: &sequence{codes: []string{"4821", "7390", "1505"}},
		Digest:    hash.NewHMACSHA256("usecase-test"),
		Clock:     clk,
	})
	require.NoError(t, err)

	h := &harness{
		db:       newFakeDB(),
		ledger:   mem,
		notifier: &fakeNotifier{},
		mq:       &fakeMessaging{},
		clock:    clk,
	}
	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoLedger:    mem,
		RepoNotifier:  h.notifier,
		RepoMessaging: h.mq,
		Validator:     v,
		Config:        cfg,
		Password:      hash.NewBcrypt(hash.MinBcryptCost, ""),
		UID:           &counterID{},
		Clock:         clk,
		JWT:           issuer,
		Instrument:    instrument.NewNoop(),
	})
	return h
}

type sequence struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (s *sequence) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes[s.next%len(s.codes)]
	s.next++
	return code, nil
}

func assertCode(t *testing.T, err error, want goerror.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want.String(), goerror.CodeOf(err).String(), "error: %v", err)
}

func (h *harness) signup(t *testing.T, email, password string) *AuthOutput {
	t.Helper()
	out, err := h.uc.Signup(context.Background(), SignupInput{Email: email, PhoneNumber: "+1", Password: password})
	require.NoError(t, err)
	return out
}

var errStore = errors.New("store down")
