package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/pkg/jwt"
)

const (
	// keepAliveEvery stays under the usual 30s-60s proxy idle timeouts.
	keepAliveEvery = 25 * time.Second
	// reconnectAfter is the retry hint sent to EventSource clients.
	reconnectAfter = 5 * time.Second
)

// StreamNotifications pushes new inbox entries to the client as server-sent events.
// @Summary Stream notifications
// @Tags Notification
// @Security BearerAuth
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Failure 401 {string} string "Unauthorized"
// @Router /api/v1/notifications-stream [get]
func (h *HTTPEndpoint) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.WarnContext(ctx, "failed to clear write deadline for stream", "error", err)
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(format string, args ...any) bool {
		if _, err := fmt.Fprintf(w, format, args...); err != nil {
			slog.DebugContext(ctx, "stream client gone", "account_id", clm.UserID, "error", err)
			return false
		}
		if err := rc.Flush(); err != nil {
			slog.ErrorContext(ctx, "stream flush failed", "account_id", clm.UserID, "error", err)
			return false
		}
		return true
	}

	entries := h.uc.StreamNotifications(ctx, clm.UserID)
	if !send("retry: %d\n\n", reconnectAfter.Milliseconds()) {
		return
	}

	tick := time.NewTicker(keepAliveEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if !send(": keep-alive\n\n") {
				return
			}
		case n, ok := <-entries:
			if !ok {
				return
			}
			if !writeEvent(w, n) {
				slog.ErrorContext(ctx, "failed to write stream event", "account_id", clm.UserID, "notification_id", n.ID)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeEvent frames n as an SSE "notification" event whose id is the entry
// id, so a reconnecting client can report the last one it saw.
func writeEvent(w io.Writer, n entity.Notification) bool {
	data, err := json.Marshal(newNotificationResponse(n))
	if err != nil {
		return false
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: notification\ndata: %s\n\n", n.ID, data)
	return err == nil
}
