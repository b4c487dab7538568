package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "authd:otp:"

	// redisGrace keeps a record on the server a little past ExpiresAt so the
	// clock-based check, not key eviction, decides between expired and absent.
	redisGrace = time.Minute
)

// peekScript returns {status, code_hash, created_at, expires_at, verified_at}.
// ARGV[1] is now in unix milliseconds.
var peekScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'code_hash', 'created_at', 'expires_at', 'verified_at')
if not h[1] then
	return {'not_found'}
end
if tonumber(ARGV[1]) > tonumber(h[3]) then
	redis.call('DEL', KEYS[1])
	return {'expired'}
end
return {'ok', h[1], h[2], h[3], h[4] or ''}
`)

// stampScript sets verified_at while the stored digest is still ARGV[2],
// the one the candidate was checked against. ARGV[1] is now in unix
// milliseconds.
var stampScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'code_hash', 'expires_at')
if not h[1] then
	return 'not_found'
end
if tonumber(ARGV[1]) > tonumber(h[2]) then
	redis.call('DEL', KEYS[1])
	return 'expired'
end
if h[1] ~= ARGV[2] then
	return 'replaced'
end
redis.call('HSET', KEYS[1], 'verified_at', ARGV[1])
return 'ok'
`)

// claimScript deletes the record when its digest and created_at are still
// ARGV[2] and ARGV[3]. ARGV[1] is now in unix milliseconds.
var claimScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'code_hash', 'created_at', 'expires_at')
if not h[1] then
	return 'not_found'
end
if tonumber(ARGV[1]) > tonumber(h[3]) then
	redis.call('DEL', KEYS[1])
	return 'expired'
end
if h[1] ~= ARGV[2] or h[2] ~= ARGV[3] then
	return 'replaced'
end
redis.call('DEL', KEYS[1])
return 'ok'
`)

// Redis is a ledger shared by every instance pointing at the same server.
// Issue runs in MULTI/EXEC; Peek, Verify and Claim run as Lua scripts so their
// check-then-write steps are atomic. Verify compares the candidate digest in
// Go with Config.Digest, never in Lua, so the comparison stays constant time.
type Redis struct {
	cfg    Config
	obs    observer
	client redis.UniversalClient
}

// NewRedis builds a ledger on client.
func NewRedis(client redis.UniversalClient, cfg Config) (*Redis, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Redis{
		cfg:    cfg,
		obs:    newObserver(cfg.Instrument, DriverRedis),
		client: client,
	}, nil
}

func (r *Redis) key(email string) string {
	return redisKeyPrefix + email
}

func (r *Redis) Issue(ctx context.Context, email string) (_ string, err error) {
	ctx, span := r.obs.start(ctx, "Issue")
	defer func() { r.obs.end(ctx, span, "issue", err) }()

	code, digest, err := r.cfg.issueCode()
	if err != nil {
		return "", err
	}

	now := r.cfg.Clock.Now()
	key := r.key(email)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", digest,
			"created_at", now.UnixMilli(),
			"expires_at", now.Add(r.cfg.TTL).UnixMilli(),
		)
		pipe.PExpire(ctx, key, r.cfg.TTL+redisGrace)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ledger issue: %w", err)
	}

	return code, nil
}

func (r *Redis) Peek(ctx context.Context, email string) (_ *entity.OTPRecord, err error) {
	ctx, span := r.obs.start(ctx, "Peek")
	defer func() { r.obs.end(ctx, span, "peek", err) }()

	return r.peek(ctx, email)
}

func (r *Redis) peek(ctx context.Context, email string) (_ *entity.OTPRecord, err error) {
	res, err := peekScript.Run(ctx, r.client, []string{r.key(email)}, r.cfg.Clock.Now().UnixMilli()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("ledger peek: %w", err)
	}
	if len(res) == 0 {
		return nil, errors.New("ledger peek: empty reply")
	}

	switch res[0] {
	case "not_found":
		return nil, entity.ErrOTPNotFound
	case "expired":
		return nil, entity.ErrOTPExpired
	}

	if len(res) != 5 {
		return nil, fmt.Errorf("ledger peek: unexpected reply length %d", len(res))
	}

	rec := &entity.OTPRecord{Email: email, CodeHash: res[1]}
	if rec.CreatedAt, err = parseMillis(res[2]); err != nil {
		return nil, err
	}
	if rec.ExpiresAt, err = parseMillis(res[3]); err != nil {
		return nil, err
	}
	if res[4] != "" {
		at, err := parseMillis(res[4])
		if err != nil {
			return nil, err
		}
		rec.VerifiedAt = &at
	}

	return rec, nil
}

func (r *Redis) Verify(ctx context.Context, email, candidate string) (err error) {
	ctx, span := r.obs.start(ctx, "Verify")
	defer func() { r.obs.end(ctx, span, "verify", err) }()

	rec, err := r.peek(ctx, email)
	if err != nil {
		return err
	}

	if !r.cfg.Digest.Verify(rec.CodeHash, candidate) {
		return entity.ErrOTPMismatch
	}

	status, err := stampScript.Run(ctx, r.client, []string{r.key(email)}, r.cfg.Clock.Now().UnixMilli(), rec.CodeHash).Text()
	if err != nil {
		return fmt.Errorf("ledger verify: %w", err)
	}

	// replaced: a newer Issue landed between the read and the stamp, and the
	// candidate was checked against the code it replaced.
	if status == "replaced" {
		return entity.ErrOTPMismatch
	}
	return statusError("verify", status)
}

func (r *Redis) Claim(ctx context.Context, rec *entity.OTPRecord) (err error) {
	ctx, span := r.obs.start(ctx, "Claim")
	defer func() { r.obs.end(ctx, span, "claim", err) }()

	status, err := claimScript.Run(ctx, r.client, []string{r.key(rec.Email)},
		r.cfg.Clock.Now().UnixMilli(), rec.CodeHash, rec.CreatedAt.UnixMilli()).Text()
	if err != nil {
		return fmt.Errorf("ledger claim: %w", err)
	}
	return statusError("claim", status)
}

func statusError(op, status string) error {
	switch status {
	case "ok":
		return nil
	case "not_found":
		return entity.ErrOTPNotFound
	case "expired":
		return entity.ErrOTPExpired
	case "replaced":
		return entity.ErrOTPReplaced
	default:
		return fmt.Errorf("ledger %s: unexpected status %q", op, status)
	}
}

func (r *Redis) Consume(ctx context.Context, email string) (err error) {
	ctx, span := r.obs.start(ctx, "Consume")
	defer func() { r.obs.end(ctx, span, "consume", err) }()

	if err := r.client.Del(ctx, r.key(email)).Err(); err != nil {
		return fmt.Errorf("ledger consume: %w", err)
	}
	return nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("ledger: bad timestamp %q: %w", s, err)
	}
	return time.UnixMilli(ms), nil
}
