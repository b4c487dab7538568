// Package uid generates identifiers.
package uid

import "github.com/google/uuid"

// NumberID generates sortable numeric identifiers (primary keys).
type NumberID interface {
	Generate() int64
}

// StringID generates opaque string identifiers (correlation ids, token ids).
type StringID interface {
	Generate() string
}

// StringFunc adapts a function to StringID.
type StringFunc func() string

func (f StringFunc) Generate() string { return f() }

// UUIDv7 yields version 7 UUIDs so correlation and token ids sort by
// creation time in logs. It degrades to v4 if v7 generation fails.
var UUIDv7 StringID = StringFunc(func() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
})
