package entity

// Status filters an inbox listing.
type Status string

const (
	StatusAll    Status = "all"
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// ReadFlag returns the is_read value a status selects, or nil for all entries.
func (s Status) ReadFlag() *bool {
	var v bool
	switch s {
	case StatusUnread:
		v = false
	case StatusRead:
		v = true
	default:
		return nil
	}
	return &v
}
