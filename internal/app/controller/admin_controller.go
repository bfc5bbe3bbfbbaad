package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mjlee/confirmail-backend/internal/app/service"
	apperrors "github.com/mjlee/confirmail-backend/internal/errors"
	"github.com/mjlee/confirmail-backend/internal/middleware"
)

const defaultLogLimit = 50

type AdminController struct {
	adminService service.AdminService
}

func NewAdminController(adminService service.AdminService) *AdminController {
	return &AdminController{
		adminService: adminService,
	}
}

// GetRequest returns one confirmation request.
// GET /api/v1/admin/requests/:id
func (ctrl *AdminController) GetRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	req, err := ctrl.adminService.GetRequest(id)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			apperrors.NotFound(c, apperrors.CodeResourceNotFound, "Confirmation request not found")
			return
		}
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": req})
}

// GetRequestLogs returns the audit trail of a request.
// GET /api/v1/admin/requests/:id/logs
func (ctrl *AdminController) GetRequestLogs(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}

	entries, err := ctrl.adminService.GetRequestLogs(id, logLimit(c))
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			apperrors.NotFound(c, apperrors.CodeResourceNotFound, "Confirmation request not found")
			return
		}
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// GetLogs returns recent audit entries for an email.
// GET /api/v1/admin/logs?email=...
func (ctrl *AdminController) GetLogs(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		apperrors.BadRequest(c, apperrors.CodeValidationRequired, "An email query parameter is required")
		return
	}

	entries, err := ctrl.adminService.GetLogsByEmail(email, logLimit(c))
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// CancelRequest administratively cancels a pending request.
// POST /api/v1/admin/requests/:id/cancel
func (ctrl *AdminController) CancelRequest(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := requestID(c)
	if !ok {
		return
	}

	cancelledBy := c.GetString(middleware.AdminSubjectKey)
	err := ctrl.adminService.CancelRequest(id, cancelledBy, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			apperrors.NotFound(c, apperrors.CodeResourceNotFound, "Confirmation request not found")
		case errors.Is(err, service.ErrCancelNotPending):
			apperrors.Conflict(c, apperrors.CodeResourceConflict, "Only pending requests can be cancelled")
		default:
			log.Error("Cancellation failed", err, map[string]interface{}{
				"request_id": id,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Confirmation request cancelled.",
	})
}

// GetMetrics returns pipeline counters.
// GET /api/v1/admin/metrics
func (ctrl *AdminController) GetMetrics(c *gin.Context) {
	metrics, err := ctrl.adminService.GetMetrics()
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func requestID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.CodeValidationInvalidID, "Invalid request id")
		return 0, false
	}
	return uint(id), true
}

func logLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit <= 0 || limit > 500 {
		return defaultLogLimit
	}
	return limit
}
