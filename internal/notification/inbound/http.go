package inbound

import (
	"net/http"

	"github.com/coincraze/authd/internal/pkg/router"
)

// Keywords sharing a path segment with :id. httprouter cannot hold a static
// and a param child at the same segment, so the handlers dispatch on them.
const (
	segUnread    = "unread"
	segStats     = "stats"
	segMarkAll   = "mark-all"
	segClearAll  = "clear-all"
	segClearRead = "clear-read"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/notifications", end.List)
	r.POST("/api/v1/notifications", end.Create)

	// GET /unread and GET /:id
	r.GET("/api/v1/notifications/:id", end.GetOrListUnread)
	// GET /stats/summary
	r.GET("/api/v1/notifications/:id/summary", end.Stats)

	// PATCH /:id/read and PATCH /mark-all/read
	r.PATCH("/api/v1/notifications/:id/read", end.MarkRead)
	r.PATCH("/api/v1/notifications/:id/unread", end.MarkUnread)

	// DELETE /:id, /clear-all and /clear-read
	r.DELETE("/api/v1/notifications/:id", end.Delete)

	r.GETRaw("/api/v1/notifications-stream", http.HandlerFunc(end.StreamNotifications))
}
