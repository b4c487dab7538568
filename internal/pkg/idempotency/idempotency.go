// Package idempotency deduplicates client retries of non-idempotent
// requests (POST with an Idempotency-Key header). Each key is a redis hash
// holding the attempt state, a fingerprint of the request it was first used
// with, and the token of the attempt that owns it.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("idempotency: request already in progress")
	ErrAlreadyCompleted  = errors.New("idempotency: request already completed")
	// ErrKeyReused means the key was first used with a different request.
	ErrKeyReused    = errors.New("idempotency: key reused with a different request")
	ErrInvalidState = errors.New("idempotency: invalid state")
	// ErrLockLost means fn succeeded but its lock expired and the key now
	// belongs to another attempt, so this success was not recorded.
	ErrLockLost = errors.New("idempotency: lock lost before completion")
)

type State string

const (
	StateAcquired   State = "acquired"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Idempotency runs fn at most once per key while the key is remembered.
type Idempotency interface {
	Exec(ctx context.Context, key, fingerprint string, fn func(context.Context) error, opts ...Option) error
}

// acquireScript: ARGV = fingerprint, owner, lock ms.
// Returns {state, stored fingerprint}.
var acquireScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
  redis.call('HSET', KEYS[1], 'state', 'in_progress', 'fp', ARGV[1], 'owner', ARGV[2])
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  return {'acquired', ARGV[1]}
end
return {state, redis.call('HGET', KEYS[1], 'fp') or ''}
`)

// completeScript: ARGV = owner, ttl ms. 0 when the lock was lost.
var completeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'owner') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'state', 'completed')
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// releaseScript: ARGV = owner.
var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'owner') ~= ARGV[1] then
  return 0
end
return redis.call('DEL', KEYS[1])
`)

// StateTracker keeps per-key state in redis under "idempotency:<namespace>:".
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, namespace string) *StateTracker {
	prefix := "idempotency:"
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &StateTracker{client: client, prefix: prefix}
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

type Option func(*execOptions)

type execOptions struct {
	lock time.Duration
	ttl  time.Duration
}

// WithLockDuration bounds how long an in-flight attempt holds the key.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lock = d }
}

// WithStateTTL sets how long a completed request is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.ttl = d }
}

// Fingerprint digests the parts that make up a request so a reused key can
// be told apart from a genuine retry.
func Fingerprint(parts ...any) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%q", parts))
	return hex.EncodeToString(sum[:])
}

// Acquire claims key for owner, or reports who already has it.
func (s *StateTracker) Acquire(ctx context.Context, key, fingerprint, owner string, lock time.Duration) (State, error) {
	res, err := acquireScript.Run(ctx, s.client, []string{s.prefix + key}, fingerprint, owner, lock.Milliseconds()).StringSlice()
	if err != nil {
		return "", fmt.Errorf("idempotency: acquire: %w", err)
	}
	if len(res) != 2 {
		return "", ErrInvalidState
	}

	state := State(res[0])
	switch state {
	case StateAcquired:
		return state, nil
	case StateInProgress, StateCompleted:
		if res[1] != fingerprint {
			return state, ErrKeyReused
		}
		return state, nil
	default:
		return "", ErrInvalidState
	}
}

// Exec runs fn under key. A failed fn releases the key so the client may
// retry with it; a successful one is remembered for the state TTL. When fn
// outlives its lock and another attempt takes the key, Exec returns
// ErrLockLost even though fn succeeded.
func (s *StateTracker) Exec(ctx context.Context, key, fingerprint string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lock: defaultLockDuration, ttl: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lock <= 0 {
		o.lock = defaultLockDuration
	}
	if o.ttl <= 0 {
		o.ttl = defaultStateTTL
	}

	owner := uuid.NewString()
	state, err := s.Acquire(ctx, key, fingerprint, owner, o.lock)
	if err != nil {
		return err
	}
	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	}

	fk := []string{s.prefix + key}
	if err := fn(ctx); err != nil {
		// context.WithoutCancel: a cancelled request must still free its key.
		if relErr := releaseScript.Run(context.WithoutCancel(ctx), s.client, fk, owner).Err(); relErr != nil {
			return errors.Join(err, fmt.Errorf("idempotency: release: %w", relErr))
		}
		return err
	}

	done, err := completeScript.Run(context.WithoutCancel(ctx), s.client, fk, owner, o.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("idempotency: complete: %w", err)
	}
	if done == 0 {
		return ErrLockLost
	}
	return nil
}
