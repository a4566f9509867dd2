package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fieldops-service/internal/http/middleware"
	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
	"fieldops-service/internal/service"
)

type Handler struct {
	jobService          *service.JobService
	photoService        *service.PhotoApprovalService
	clockService        *service.ClockService
	notificationService *service.NotificationService
	uploadService       *service.UploadService
	progressService     *service.ProgressService
	hub                 *realtime.Hub
	log                 zerolog.Logger
}

func NewHandler(
	jobService *service.JobService,
	photoService *service.PhotoApprovalService,
	clockService *service.ClockService,
	notificationService *service.NotificationService,
	uploadService *service.UploadService,
	progressService *service.ProgressService,
	hub *realtime.Hub,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		jobService:          jobService,
		photoService:        photoService,
		clockService:        clockService,
		notificationService: notificationService,
		uploadService:       uploadService,
		progressService:     progressService,
		hub:                 hub,
		log:                 log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/")
	protected.Use(authMiddleware)

	technician := protected.Group("/technician")
	{
		technician.GET("/jobs", h.listJobs)
		technician.GET("/jobs/:id", h.getJob)
		technician.PUT("/jobs/:id/start", h.startJob)
		technician.PUT("/jobs/:id/complete", h.completeJob)
		technician.PUT("/jobs/:id/signature", h.attachSignature)
		technician.PUT("/jobs/:id/cancel", h.cancelJob)
		h.registerJobWork(technician)

		technician.POST("/clock/in", h.clockIn)
		technician.GET("/clock/current", h.currentClockEntry)
		technician.GET("/clock", h.listMyClockEntries)
		technician.PUT("/clock/:id/break/start", h.startBreak)
		technician.PUT("/clock/:id/break/end", h.endBreak)
		technician.PUT("/clock/:id/out", h.clockOut)
		technician.PUT("/clock/:id/location", h.updateLocation)

		technician.GET("/progress", h.getProgress)
		technician.POST("/session/end", h.endSession)
	}

	// Supervisors and managers share the scheduling surface.
	for _, prefix := range []string{"/supervisor", "/manager"} {
		scheduler := protected.Group(prefix)
		{
			scheduler.GET("/jobs", h.listJobs)
			scheduler.POST("/jobs", h.createJob)
			scheduler.GET("/jobs/:id", h.getJob)
			scheduler.PUT("/jobs/:id/schedule", h.rescheduleJob)
			scheduler.PUT("/jobs/:id/assign", h.reassignJob)
			scheduler.PUT("/jobs/:id/cancel", h.cancelJob)
			h.registerJobWork(scheduler)

			scheduler.GET("/photos/pending", h.listPendingPhotos)
			scheduler.PUT("/photos/:id/approve", h.approvePhoto)
			scheduler.PUT("/photos/:id/reject", h.rejectPhoto)

			scheduler.GET("/clock", h.listClockEntries)
			scheduler.GET("/clock/export", h.exportTimesheet)
			scheduler.PUT("/clock/:id/approve", h.approveClockEntry)
			scheduler.PUT("/clock/:id/reject", h.rejectClockEntry)
		}
	}

	protected.GET("/notifications", h.listNotifications)
	protected.PUT("/notifications/read-all", h.markAllNotificationsRead)
	protected.PUT("/notifications/:id/read", h.markNotificationRead)

	protected.GET("/realtime/stream", h.streamSSE)
	protected.GET("/realtime/ws", h.streamWS)
}

// registerJobWork mounts the routes both assignees and schedulers use while a
// job is being worked on.
func (h *Handler) registerJobWork(g *gin.RouterGroup) {
	g.PUT("/jobs/:id/checklists/:kind", h.updateChecklist)
	g.PUT("/jobs/:id/checklists/:kind/items/:index/toggle", h.toggleChecklistItem)
	g.PUT("/jobs/:id/notes", h.updateNotes)
	g.GET("/jobs/:id/updates", h.listJobUpdates)
	g.POST("/jobs/:id/updates", h.addJobUpdate)
	g.GET("/jobs/:id/photos", h.listJobPhotos)
	g.POST("/jobs/:id/uploads", h.requestUpload)
	g.POST("/jobs/:id/downloads", h.requestDownload)
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return model.Principal{}, false
	}
	return principal, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrSignatureRequired):
		c.JSON(http.StatusPreconditionRequired, errorResponse(err.Error()))
	case errors.Is(err, service.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}
