package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fieldops-service/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type coordinatesRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (r coordinatesRequest) toCoordinates() service.Coordinates {
	return service.Coordinates{Lat: r.Lat, Lng: r.Lng}
}

func (h *Handler) clockIn(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req coordinatesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	result, err := h.clockService.ClockIn(c.Request.Context(), principal, req.toCoordinates())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(result))
}

func (h *Handler) currentClockEntry(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	entry, err := h.clockService.OpenEntry(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) startBreak(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	entry, err := h.clockService.StartBreak(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) endBreak(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	entry, err := h.clockService.EndBreak(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) clockOut(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req coordinatesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	entry, err := h.clockService.ClockOut(c.Request.Context(), principal, c.Param("id"), req.toCoordinates())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) updateLocation(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Lat *float64 `json:"lat" binding:"required"`
		Lng *float64 `json:"lng" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	entry, err := h.clockService.UpdateLocation(c.Request.Context(), principal, c.Param("id"), *req.Lat, *req.Lng)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func clockListInput(c *gin.Context) service.ClockListInput {
	return service.ClockListInput{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Status: strings.TrimSpace(c.Query("status")),
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
	}
}

func (h *Handler) listMyClockEntries(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	entries, err := h.clockService.ListMine(c.Request.Context(), principal, clockListInput(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entries))
}

func (h *Handler) listClockEntries(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	entries, err := h.clockService.ListAll(c.Request.Context(), principal, clockListInput(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entries))
}

func (h *Handler) approveClockEntry(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	entry, err := h.clockService.Approve(c.Request.Context(), principal, c.Param("id"), req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) rejectClockEntry(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	entry, err := h.clockService.Reject(c.Request.Context(), principal, c.Param("id"), req.Comment)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) exportTimesheet(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	input := clockListInput(c)
	raw, err := h.clockService.ExportTimesheet(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	name := "timesheet.xlsx"
	if input.From != "" {
		name = fmt.Sprintf("timesheet-%s.xlsx", input.From)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, raw)
}
