package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listPendingPhotos(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	approvals, err := h.photoService.ListPending(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(approvals))
}

func (h *Handler) listJobPhotos(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	approvals, err := h.photoService.ListByJob(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(approvals))
}

func (h *Handler) approvePhoto(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Comment *string `json:"comment"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	approval, err := h.photoService.Approve(c.Request.Context(), principal, c.Param("id"), req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(approval))
}

func (h *Handler) rejectPhoto(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	// The service rejects a blank comment, so a missing body is not an
	// error here.
	var req struct {
		Comment string `json:"comment"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	approval, err := h.photoService.Reject(c.Request.Context(), principal, c.Param("id"), req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(approval))
}

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid limit"))
			return
		}
		limit = n
	}

	notifications, err := h.notificationService.ListMine(c.Request.Context(), principal, unreadOnly, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(notifications))
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"read": true}))
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"updated": updated}))
}

func (h *Handler) getProgress(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	view, err := h.progressService.Get(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(view))
}

// endSession drops the cached gamification state on logout.
func (h *Handler) endSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	h.progressService.EndSession(principal)
	c.Status(http.StatusNoContent)
}
