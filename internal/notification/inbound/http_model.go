package inbound

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/notification/usecase"
)

type NotificationResponse struct {
	ID        int64     `json:"id,string"`
	UserID    int64     `json:"userId,string"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Currency  string    `json:"currency"`
	Amount    float64   `json:"amount"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newNotificationResponse(n entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.AccountID,
		Title:     n.Title,
		Message:   n.Message,
		Currency:  n.Currency,
		Amount:    n.Amount,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

type PaginationResponse struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

type CountsResponse struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
	Read   int64 `json:"read"`
}

type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Pagination    PaginationResponse     `json:"pagination"`
	Counts        *CountsResponse        `json:"counts,omitempty"`
}

func newListResponse(out *usecase.ListOutput, withCounts bool) ListResponse {
	items := make([]NotificationResponse, 0, len(out.Items))
	for _, n := range out.Items {
		items = append(items, newNotificationResponse(n))
	}

	resp := ListResponse{
		Notifications: items,
		Pagination: PaginationResponse{
			CurrentPage: out.Pagination.CurrentPage,
			TotalPages:  out.Pagination.TotalPages,
			TotalCount:  out.Pagination.TotalCount,
			HasNextPage: out.Pagination.HasNextPage,
			HasPrevPage: out.Pagination.HasPrevPage,
		},
	}
	if withCounts {
		resp.Counts = &CountsResponse{Total: out.Counts.Total, Unread: out.Counts.Unread, Read: out.Counts.Read}
	}
	return resp
}

// ItemResponse wraps a single entry with a per-action message.
type ItemResponse struct {
	NotificationResponse

	msg    string
	status int
}

func (r ItemResponse) Message() string { return r.msg }

func (r ItemResponse) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

type CreateRequest struct {
	UserID   int64    `json:"userId,string,omitempty"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Currency string   `json:"currency"`
	Amount   *float64 `json:"amount"`
}

type ModifiedResponse struct {
	ModifiedCount int64 `json:"modifiedCount"`

	msg string
}

func newModifiedResponse(n int64, state string) ModifiedResponse {
	return ModifiedResponse{ModifiedCount: n, msg: fmt.Sprintf("%d notifications marked as %s", n, state)}
}

func (r ModifiedResponse) Message() string { return r.msg }

type DeletedResponse struct {
	DeletedCount int64 `json:"deletedCount"`

	msg string
}

func (r DeletedResponse) Message() string { return r.msg }

type StatsResponse struct {
	Total          int64 `json:"total"`
	Unread         int64 `json:"unread"`
	Read           int64 `json:"read"`
	Recent         int64 `json:"recent"`
	ReadPercentage int64 `json:"readPercentage"`
}
