package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/coincraze/authd/internal/pkg/goroutine"
	"go.uber.org/atomic"
)

// Memory is a process-local ledger. Every operation runs under one mutex
// covering the whole key space, so it is only correct for a single instance.
type Memory struct {
	cfg Config
	obs observer

	mu      sync.Mutex
	records map[string]entity.OTPRecord

	sweeping atomic.Bool
}

// NewMemory builds an empty in-memory ledger.
func NewMemory(cfg Config) (*Memory, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Memory{
		cfg:     cfg,
		obs:     newObserver(cfg.Instrument, DriverMemory),
		records: make(map[string]entity.OTPRecord),
	}, nil
}

// Issue stores a fresh code for email, replacing any previous record.
func (m *Memory) Issue(ctx context.Context, email string) (_ string, err error) {
	ctx, span := m.obs.start(ctx, "Issue")
	defer func() { m.obs.end(ctx, span, "issue", err) }()

	code, digest, err := m.cfg.issueCode()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock.Now()
	m.records[email] = entity.OTPRecord{
		Email:     email,
		CodeHash:  digest,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}

	return code, nil
}

// Peek returns a copy of the live record. An expired record is removed and
// reported as entity.ErrOTPExpired.
func (m *Memory) Peek(ctx context.Context, email string) (_ *entity.OTPRecord, err error) {
	ctx, span := m.obs.start(ctx, "Peek")
	defer func() { m.obs.end(ctx, span, "peek", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.live(email)
	if err != nil {
		return nil, err
	}

	if rec.VerifiedAt != nil {
		at := *rec.VerifiedAt
		rec.VerifiedAt = &at
	}
	return &rec, nil
}

// Verify checks candidate against the stored digest. A match stamps
// VerifiedAt and keeps the record; a mismatch keeps it untouched.
func (m *Memory) Verify(ctx context.Context, email, candidate string) (err error) {
	ctx, span := m.obs.start(ctx, "Verify")
	defer func() { m.obs.end(ctx, span, "verify", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.live(email)
	if err != nil {
		return err
	}

	if !m.cfg.Digest.Verify(rec.CodeHash, candidate) {
		return entity.ErrOTPMismatch
	}

	now := m.cfg.Clock.Now()
	rec.VerifiedAt = &now
	m.records[email] = rec
	return nil
}

// Claim removes the record for rec.Email only while it is still the record
// rec was read from. Of several claims on one record, exactly one succeeds.
func (m *Memory) Claim(ctx context.Context, rec *entity.OTPRecord) (err error) {
	ctx, span := m.obs.start(ctx, "Claim")
	defer func() { m.obs.end(ctx, span, "claim", err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := m.live(rec.Email)
	if err != nil {
		return err
	}

	if cur.CodeHash != rec.CodeHash || !cur.CreatedAt.Equal(rec.CreatedAt) {
		return entity.ErrOTPReplaced
	}

	delete(m.records, rec.Email)
	return nil
}

// Consume removes the record for email, if any.
func (m *Memory) Consume(ctx context.Context, email string) (err error) {
	ctx, span := m.obs.start(ctx, "Consume")
	defer func() { m.obs.end(ctx, span, "consume", err) }()

	m.mu.Lock()
	delete(m.records, email)
	m.mu.Unlock()
	return nil
}

// live must be called with mu held.
func (m *Memory) live(email string) (entity.OTPRecord, error) {
	rec, ok := m.records[email]
	if !ok {
		return entity.OTPRecord{}, entity.ErrOTPNotFound
	}

	if rec.Expired(m.cfg.Clock.Now()) {
		delete(m.records, email)
		return entity.OTPRecord{}, entity.ErrOTPExpired
	}

	return rec, nil
}

// Sweep removes every expired record and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock.Now()
	removed := 0
	for email, rec := range m.records {
		if rec.Expired(now) {
			delete(m.records, email)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// StartSweeper runs Sweep every interval on gm until ctx is done. It reports
// false when interval is not positive or a sweeper is already running.
func (m *Memory) StartSweeper(ctx context.Context, gm *goroutine.Manager, interval time.Duration) bool {
	if interval <= 0 || !m.sweeping.CompareAndSwap(false, true) {
		return false
	}

	started := gm.Go(ctx, func(ctx context.Context) error {
		defer m.sweeping.Store(false)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					slog.DebugContext(ctx, "otp ledger swept expired records", "removed", n)
				}
			}
		}
	})
	if !started {
		m.sweeping.Store(false)
	}
	return started
}
