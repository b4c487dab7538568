// Package config reads service settings. Keys are dotted paths such as
// "modules.identity.otp.ttl_minutes"; every key can be overridden from the
// environment (see EnvPrefix).
package config

import (
	"io"
	"time"
)

// Config is the read side of the service settings. Getters return the zero
// value for absent keys unless a default is registered.
type Config interface {
	io.Closer

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetSecond and GetMinute read an integer and scale it to a duration, so
	// "otp.ttl_minutes: 10" becomes 10*time.Minute.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration

	// GetArray accepts either a YAML sequence or a comma separated string.
	GetArray(key string) []string

	// Missing lists the keys among keys that have no value and no default.
	Missing(keys ...string) []string
}
