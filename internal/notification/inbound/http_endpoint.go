package inbound

import (
	"fmt"
	"net/http"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/coincraze/authd/internal/notification/usecase"
	"github.com/coincraze/authd/internal/pkg/goerror"
	"github.com/coincraze/authd/internal/pkg/router"
)

const headerIdempotencyKey = "Idempotency-Key"

var errEndpointNotFound = goerror.NewBusiness("endpoint not found", goerror.CodeNotFound)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) pageQuery(r *router.Request) (page, limit int, err error) {
	if page, err = r.QueryInt("page", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = r.QueryInt("limit", 0); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func (h *HTTPEndpoint) id(r *router.Request) (usecase.IDInput, error) {
	id, err := r.ParamInt64("id")
	if err != nil {
		return usecase.IDInput{}, err
	}
	return usecase.IDInput{ID: id}, nil
}

func item(n *entity.Notification, msg string) ItemResponse {
	return ItemResponse{NotificationResponse: newNotificationResponse(*n), msg: msg}
}

// List returns a page of the caller's inbox.
// @Summary List notifications
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size"
// @Param status query string false "all, read or unread"
// @Success 200 {object} router.successResponse{data=ListResponse}
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications [get]
func (h *HTTPEndpoint) List(r *router.Request) (any, error) {
	page, limit, err := h.pageQuery(r)
	if err != nil {
		return nil, err
	}

	out, err := h.uc.List(r.Context(), usecase.ListInput{Page: page, Limit: limit, Status: r.Query("status")})
	if err != nil {
		return nil, err
	}

	return newListResponse(out, true), nil
}

// GetOrListUnread serves GET /api/v1/notifications/unread and GET /api/v1/notifications/:id.
// @Summary Get notification
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} router.successResponse{data=NotificationResponse}
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Router /api/v1/notifications/{id} [get]
func (h *HTTPEndpoint) GetOrListUnread(r *router.Request) (any, error) {
	if r.Param("id") == segUnread {
		return h.ListUnread(r)
	}

	in, err := h.id(r)
	if err != nil {
		return nil, err
	}

	n, err := h.uc.Get(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return item(n, "Notification fetched successfully"), nil
}

// ListUnread returns a page of unread entries.
// @Summary List unread notifications
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size"
// @Success 200 {object} router.successResponse{data=ListResponse}
// @Router /api/v1/notifications/unread [get]
func (h *HTTPEndpoint) ListUnread(r *router.Request) (any, error) {
	page, limit, err := h.pageQuery(r)
	if err != nil {
		return nil, err
	}

	out, err := h.uc.ListUnread(r.Context(), usecase.ListUnreadInput{Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}

	return newListResponse(out, false), nil
}

// Stats summarizes the caller's inbox.
// @Summary Notification statistics
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=StatsResponse}
// @Router /api/v1/notifications/stats/summary [get]
func (h *HTTPEndpoint) Stats(r *router.Request) (any, error) {
	if r.Param("id") != segStats {
		return nil, errEndpointNotFound
	}

	out, err := h.uc.Stats(r.Context())
	if err != nil {
		return nil, err
	}

	return StatsResponse{
		Total:          out.Counts.Total,
		Unread:         out.Counts.Unread,
		Read:           out.Counts.Read,
		Recent:         out.Counts.Recent,
		ReadPercentage: out.ReadPercentage,
	}, nil
}

// MarkRead serves PATCH /api/v1/notifications/:id/read and PATCH /api/v1/notifications/mark-all/read.
// @Summary Mark notification read
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID or mark-all"
// @Success 200 {object} router.successResponse{data=NotificationResponse}
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Router /api/v1/notifications/{id}/read [patch]
func (h *HTTPEndpoint) MarkRead(r *router.Request) (any, error) {
	if r.Param("id") == segMarkAll {
		n, err := h.uc.MarkAllRead(r.Context())
		if err != nil {
			return nil, err
		}
		return newModifiedResponse(n, "read"), nil
	}

	in, err := h.id(r)
	if err != nil {
		return nil, err
	}

	n, err := h.uc.MarkRead(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return item(n, "Notification marked as read"), nil
}

// MarkUnread serves PATCH /api/v1/notifications/:id/unread and PATCH /api/v1/notifications/mark-all/unread.
// @Summary Mark notification unread
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID or mark-all"
// @Success 200 {object} router.successResponse{data=NotificationResponse}
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Router /api/v1/notifications/{id}/unread [patch]
func (h *HTTPEndpoint) MarkUnread(r *router.Request) (any, error) {
	if r.Param("id") == segMarkAll {
		n, err := h.uc.MarkAllUnread(r.Context())
		if err != nil {
			return nil, err
		}
		return newModifiedResponse(n, "unread"), nil
	}

	in, err := h.id(r)
	if err != nil {
		return nil, err
	}

	n, err := h.uc.MarkUnread(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return item(n, "Notification marked as unread"), nil
}

// Delete serves DELETE /api/v1/notifications/:id, /clear-all and /clear-read.
// @Summary Delete notifications
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID, clear-all or clear-read"
// @Success 200 {object} router.successResponse{data=NotificationResponse}
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Router /api/v1/notifications/{id} [delete]
func (h *HTTPEndpoint) Delete(r *router.Request) (any, error) {
	switch r.Param("id") {
	case segClearAll:
		n, err := h.uc.ClearAll(r.Context())
		if err != nil {
			return nil, err
		}
		return DeletedResponse{DeletedCount: n, msg: fmt.Sprintf("%d notifications cleared", n)}, nil

	case segClearRead:
		n, err := h.uc.ClearRead(r.Context())
		if err != nil {
			return nil, err
		}
		return DeletedResponse{DeletedCount: n, msg: fmt.Sprintf("%d read notifications cleared", n)}, nil
	}

	in, err := h.id(r)
	if err != nil {
		return nil, err
	}

	n, err := h.uc.Delete(r.Context(), in)
	if err != nil {
		return nil, err
	}

	return item(n, "Notification deleted successfully"), nil
}

// Create adds an entry to the caller's inbox, or to userId's with permission.
// @Summary Create notification
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Deduplicates retries"
// @Param request body CreateRequest true "Notification payload"
// @Success 201 {object} router.successResponse{data=NotificationResponse}
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Request already processed"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notifications [post]
func (h *HTTPEndpoint) Create(r *router.Request) (any, error) {
	var req CreateRequest
	if err := r.Bind(&req); err != nil {
		return nil, err
	}

	n, err := h.uc.Create(r.Context(), usecase.CreateInput{
		AccountID:      req.UserID,
		Title:          req.Title,
		Message:        req.Message,
		Currency:       req.Currency,
		Amount:         req.Amount,
		IdempotencyKey: r.HeaderValue(headerIdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	resp := item(n, "Notification created successfully")
	resp.status = http.StatusCreated
	return resp, nil
}
