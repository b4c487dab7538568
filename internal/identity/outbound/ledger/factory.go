package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/coincraze/authd/internal/identity/entity"
	"github.com/redis/go-redis/v9"
)

// Ledger is implemented by every driver.
type Ledger interface {
	Issue(ctx context.Context, email string) (string, error)
	Peek(ctx context.Context, email string) (*entity.OTPRecord, error)
	Verify(ctx context.Context, email, candidate string) error
	Claim(ctx context.Context, rec *entity.OTPRecord) error
	Consume(ctx context.Context, email string) error
}

var (
	_ Ledger = (*Memory)(nil)
	_ Ledger = (*Redis)(nil)
)

// NewFromDriver builds the ledger named by driver. client is only used by
// the redis driver and must be set for it.
func NewFromDriver(driver string, client redis.UniversalClient, cfg Config) (Ledger, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemory(cfg)
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis client", ErrMissingDependency)
		}
		return NewRedis(client, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
