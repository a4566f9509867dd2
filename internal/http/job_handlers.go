package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldops-service/internal/model"
	"fieldops-service/internal/repository"
	"fieldops-service/internal/service"
)

func (h *Handler) createJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		CustomerName             string                `json:"customer_name" binding:"required"`
		CustomerAddress          string                `json:"customer_address"`
		CustomerPhone            string                `json:"customer_phone"`
		CustomerEmail            string                `json:"customer_email"`
		Description              string                `json:"description"`
		JobType                  string                `json:"job_type" binding:"required"`
		Priority                 string                `json:"priority"`
		ScheduledStart           string                `json:"scheduled_start" binding:"required"`
		ScheduledEnd             string                `json:"scheduled_end" binding:"required"`
		EstimatedDurationMinutes int                   `json:"estimated_duration_minutes"`
		AssignedTo               string                `json:"assigned_to"`
		Notes                    string                `json:"notes"`
		SafetyChecklist          []model.ChecklistItem `json:"safety_checklist"`
		MaterialsChecklist       []model.ChecklistItem `json:"materials_checklist"`
		WorkProgress             []model.ChecklistItem `json:"work_progress"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	job, err := h.jobService.Create(c.Request.Context(), principal, service.CreateJobInput{
		CustomerName:             req.CustomerName,
		CustomerAddress:          req.CustomerAddress,
		CustomerPhone:            req.CustomerPhone,
		CustomerEmail:            req.CustomerEmail,
		Description:              req.Description,
		JobType:                  req.JobType,
		Priority:                 req.Priority,
		ScheduledStart:           req.ScheduledStart,
		ScheduledEnd:             req.ScheduledEnd,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		AssignedTo:               req.AssignedTo,
		Notes:                    req.Notes,
		SafetyChecklist:          req.SafetyChecklist,
		MaterialsChecklist:       req.MaterialsChecklist,
		WorkProgress:             req.WorkProgress,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(job))
}

func (h *Handler) listJobs(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	filter := repository.JobListFilter{}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		js := model.JobStatus(strings.ToLower(status))
		if !js.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse("invalid status"))
			return
		}
		filter.Status = &js
	}

	if priority := strings.TrimSpace(c.Query("priority")); priority != "" {
		jp := model.JobPriority(strings.ToLower(priority))
		if !jp.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse("invalid priority"))
			return
		}
		filter.Priority = &jp
	}

	if assignedTo := strings.TrimSpace(c.Query("assigned_to")); assignedTo != "" {
		id, err := uuid.Parse(assignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid assigned_to"))
			return
		}
		filter.AssignedTo = &id
	}

	if raw := c.Query("scheduled_from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid scheduled_from"))
			return
		}
		filter.ScheduledFrom = &t
	}

	if raw := c.Query("scheduled_to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid scheduled_to"))
			return
		}
		filter.ScheduledTo = &t
	}

	jobs, err := h.jobService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(jobs))
}

func (h *Handler) getJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	job, err := h.jobService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(job))
}

func (h *Handler) rescheduleJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		ScheduledStart string `json:"scheduled_start" binding:"required"`
		ScheduledEnd   string `json:"scheduled_end" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	job, err := h.jobService.Reschedule(c.Request.Context(), principal, c.Param("id"), service.ScheduleInput{
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(job))
}

func (h *Handler) reassignJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	// A null or empty technician_id unassigns the job.
	var req struct {
		TechnicianID *string `json:"technician_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	technicianID := ""
	if req.TechnicianID != nil {
		technicianID = *req.TechnicianID
	}

	job, err := h.jobService.Reassign(c.Request.Context(), principal, c.Param("id"), technicianID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(job))
}

func (h *Handler) startJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	job, err := h.jobService.Start(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(job))
}

func (h *Handler) completeJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Notes     string   `json:"notes"`
		PhotoURLs []string `json:"photo_urls"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	result, err := h.jobService.Complete(c.Request.Context(), principal, c.Param("id"), service.CompleteJobInput{
		Notes:     req.Notes,
		PhotoURLs: req.PhotoURLs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) attachSignature(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		SignatureURL string `json:"signature_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.jobService.AttachSignature(c.Request.Context(), principal, c.Param("id"), req.SignatureURL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) cancelJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	job, err := h.jobService.Cancel(c.Request.Context(), principal, c.Param("id"), req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(job))
}

func (h *Handler) updateChecklist(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Items []model.ChecklistItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	kind := model.ChecklistKind(strings.TrimSpace(c.Param("kind")))
	result, err := h.jobService.UpdateChecklist(c.Request.Context(), principal, c.Param("id"), kind, req.Items)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) toggleChecklistItem(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid item index"))
		return
	}

	kind := model.ChecklistKind(strings.TrimSpace(c.Param("kind")))
	result, err := h.jobService.ToggleChecklistItem(c.Request.Context(), principal, c.Param("id"), kind, index)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) updateNotes(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	job, err := h.jobService.UpdateNotes(c.Request.Context(), principal, c.Param("id"), req.Notes)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(job))
}

func (h *Handler) addJobUpdate(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		UpdateType string   `json:"update_type" binding:"required"`
		Notes      string   `json:"notes"`
		PhotoURLs  []string `json:"photo_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	update, err := h.jobService.AddUpdate(c.Request.Context(), principal, c.Param("id"), service.AddUpdateInput{
		UpdateType: req.UpdateType,
		Notes:      req.Notes,
		PhotoURLs:  req.PhotoURLs,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(update))
}

func (h *Handler) listJobUpdates(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	updates, err := h.jobService.ListUpdates(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(updates))
}

func (h *Handler) requestUpload(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		Kind        string `json:"kind" binding:"required"`
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.uploadService.RequestUpload(c.Request.Context(), principal, c.Param("id"),
		service.UploadKind(strings.ToLower(strings.TrimSpace(req.Kind))), req.ContentType)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(ticket))
}

func (h *Handler) requestDownload(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req struct {
		ObjectURL string `json:"object_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.uploadService.RequestDownload(c.Request.Context(), principal, c.Param("id"), req.ObjectURL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}
