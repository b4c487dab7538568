package messaging

import (
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverNATS   = "nats"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

// Open returns the broker for driver. An empty name means DriverNone; nats
// is only dialled when selected.
func Open(driver string, nc NATSConfig) (Broker, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case "", DriverNone:
		return None{}, nil
	case DriverMemory:
		return NewMemory(), nil
	case DriverNATS:
		return NewNATS(nc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, d)
	}
}
