package entity

import (
	"math"
	"time"
)

// Notification is one inbox entry owned by an account.
type Notification struct {
	ID        int64
	AccountID int64
	Title     string
	Message   string
	Currency  string
	Amount    float64
	Read      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counts are the per-account totals of an inbox.
type Counts struct {
	Total  int64
	Unread int64
	Read   int64
	// Recent counts entries created inside the stats window.
	Recent int64
}

// Of returns the count matching status.
func (c Counts) Of(status Status) int64 {
	switch status {
	case StatusUnread:
		return c.Unread
	case StatusRead:
		return c.Read
	default:
		return c.Total
	}
}

// ReadPercentage is Read over Total, rounded half away from zero.
func (c Counts) ReadPercentage() int64 {
	if c.Total == 0 {
		return 0
	}
	return int64(math.Round(float64(c.Read) / float64(c.Total) * 100))
}

// Pagination describes one page of a list.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int64
	HasNextPage bool
	HasPrevPage bool
}

// NewPagination computes the pagination block for page of limit items out of total.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalCount:  total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
