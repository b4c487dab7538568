package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*StateTracker, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "notification"), m
}

func ok(context.Context) error { return nil }

func TestStateTracker_Exec(t *testing.T) {
	// Arrange
	tr, m := newTracker(t)
	ctx := context.Background()
	fp := Fingerprint("t", "m", 1.0)
	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	// Act
	first := tr.Exec(ctx, "k1", fp, fn)
	second := tr.Exec(ctx, "k1", fp, fn)

	// Assert
	require.NoError(t, first)
	assert.ErrorIs(t, second, ErrAlreadyCompleted)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "completed", m.HGet("idempotency:notification:k1", "state"))
	assert.Equal(t, fp, m.HGet("idempotency:notification:k1", "fp"))
}

func TestStateTracker_KeyReused(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	require.NoError(t, tr.Exec(ctx, "k1", Fingerprint("a"), ok))

	err := tr.Exec(ctx, "k1", Fingerprint("b"), ok)

	assert.ErrorIs(t, err, ErrKeyReused)
}

func TestStateTracker_FailureReleasesKey(t *testing.T) {
	tr, m := newTracker(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tr.Exec(ctx, "k2", "fp", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Exists("idempotency:notification:k2"))

	assert.NoError(t, tr.Exec(ctx, "k2", "fp", ok))
}

func TestStateTracker_InProgress(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	err := tr.Exec(ctx, "k3", "fp", func(ctx context.Context) error {
		return tr.Exec(ctx, "k3", "fp", ok)
	})

	assert.ErrorIs(t, err, ErrAlreadyInProgress)
}

func TestStateTracker_StaleOwnerCannotRelease(t *testing.T) {
	// Arrange: the first attempt outlives its lock and a retry completes
	// before the first attempt fails.
	tr, m := newTracker(t)
	ctx := context.Background()
	boom := errors.New("slow attempt failed")

	// Act
	err := tr.Exec(ctx, "k4", "fp", func(ctx context.Context) error {
		m.FastForward(2 * time.Minute)
		require.NoError(t, tr.Exec(ctx, "k4", "fp", ok))
		return boom
	}, WithLockDuration(time.Minute))

	// Assert
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "completed", m.HGet("idempotency:notification:k4", "state"))
	assert.ErrorIs(t, tr.Exec(ctx, "k4", "fp", ok), ErrAlreadyCompleted)
}

func TestStateTracker_LockLostOnComplete(t *testing.T) {
	// Arrange: the first attempt outlives its lock and a retry takes the key
	// before the first attempt finishes.
	tr, m := newTracker(t)
	ctx := context.Background()
	retried := false

	// Act
	err := tr.Exec(ctx, "k5", "fp", func(ctx context.Context) error {
		m.FastForward(2 * time.Minute)
		retried = tr.Exec(ctx, "k5", "fp", ok) == nil
		return nil
	}, WithLockDuration(time.Minute))

	// Assert
	assert.True(t, retried)
	assert.ErrorIs(t, err, ErrLockLost)
	assert.Equal(t, "completed", m.HGet("idempotency:notification:k5", "state"))
}

func TestStateTracker_StateExpires(t *testing.T) {
	tr, m := newTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.Exec(ctx, "k5", "fp", ok, WithStateTTL(time.Minute)))
	m.FastForward(2 * time.Minute)

	assert.NoError(t, tr.Exec(ctx, "k5", "other", ok))
}

func TestStateTracker_InvalidState(t *testing.T) {
	tr, m := newTracker(t)
	m.HSet("idempotency:notification:k6", "state", "garbage")

	_, err := tr.Acquire(context.Background(), "k6", "fp", "me", time.Minute)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a", 1), Fingerprint("a", 1))
	assert.NotEqual(t, Fingerprint("a", 1), Fingerprint("a", 2))
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
	assert.Len(t, Fingerprint(), 64)
}
