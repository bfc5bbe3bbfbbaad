package controller

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/internal/app/service"
	apperrors "github.com/mjlee/confirmail-backend/internal/errors"
	"github.com/mjlee/confirmail-backend/internal/middleware"
)

type ConfirmationController struct {
	confirmationService service.ConfirmationService
}

func NewConfirmationController(confirmationService service.ConfirmationService) *ConfirmationController {
	return &ConfirmationController{
		confirmationService: confirmationService,
	}
}

type IssueRequest struct {
	Email      string `json:"email" binding:"required,email"`
	UserID     *uint  `json:"userId"`
	Purpose    string `json:"purpose" binding:"omitempty,oneof=signup password_reset"`
	IsResend   bool   `json:"isResend"`
	RedirectTo string `json:"redirectTo"`
	UserAgent  string `json:"userAgent"`
}

type VerifyRequest struct {
	Token     string `json:"token" binding:"required"`
	UserAgent string `json:"userAgent"`
}

// Issue mints a single-use confirmation token and emails it.
// POST /api/v1/confirmations
func (ctrl *ConfirmationController) Issue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid issuance request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CodeValidationInvalidInput, "A valid email address is required")
		return
	}

	params := service.IssueParams{
		Email:      req.Email,
		UserID:     req.UserID,
		Purpose:    model.ConfirmationPurpose(req.Purpose),
		IsResend:   req.IsResend,
		RedirectTo: req.RedirectTo,
		IPAddress:  c.ClientIP(),
		UserAgent:  userAgent(c, req.UserAgent),
	}

	if err := ctrl.confirmationService.Issue(params); err != nil {
		var rateErr *service.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "Too many confirmation emails requested. Please try again later.",
				"code":       apperrors.CodeRateLimitExceeded,
				"retryAfter": int(math.Ceil(rateErr.RetryAfter.Seconds())),
			})
		case errors.Is(err, service.ErrIssueConflict):
			// Another request reissued concurrently; the client can
			// simply try again.
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "A confirmation email is already being sent. Please try again.",
				"code":       apperrors.CodeRateLimitExceeded,
				"retryAfter": 1,
			})
		default:
			log.Error("Issuance failed", err, map[string]interface{}{
				"email": req.Email,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "If the address is valid, a confirmation email has been sent.",
	})
}

// Verify validates a presented token and performs the confirmation.
// GET /api/v1/confirmations/verify?token=...
// POST /api/v1/confirmations/verify
func (ctrl *ConfirmationController) Verify(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var token, bodyUA string
	if c.Request.Method == http.MethodGet {
		token = c.Query("token")
	} else {
		var req VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.CodeValidationRequired, "A token is required")
			return
		}
		token = req.Token
		bodyUA = req.UserAgent
	}
	if token == "" {
		apperrors.BadRequest(c, apperrors.CodeValidationRequired, "A token is required")
		return
	}

	req, err := ctrl.confirmationService.Verify(service.VerifyParams{
		Token:     token,
		IPAddress: c.ClientIP(),
		UserAgent: userAgent(c, bodyUA),
	})
	if err != nil {
		ctrl.respondVerifyError(c, req, err)
		return
	}

	log.Info("Token verified", map[string]interface{}{
		"request_id": req.ID,
		"email":      req.Email,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Email address confirmed.",
		"confirmedAt": req.ConfirmedAt,
		"email":       req.Email,
		"userId":      req.UserID,
	})
}

func (ctrl *ConfirmationController) respondVerifyError(c *gin.Context, req *model.ConfirmationRequest, err error) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Invalid confirmation token.",
			"code":  apperrors.CodeInvalidToken,
		})
	case errors.Is(err, service.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "This email address has already been confirmed.",
			"code":        apperrors.CodeAlreadyConfirmed,
			"confirmedAt": req.ConfirmedAt,
		})
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{
			"error":     "This confirmation link has expired. Please request a new one.",
			"code":      apperrors.CodeTokenExpired,
			"expiresAt": req.ExpiresAt,
			"email":     req.Email,
		})
	case errors.Is(err, service.ErrTokenInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "This confirmation token is no longer valid.",
			"code":   apperrors.CodeInvalidToken,
			"status": req.Status,
		})
	case errors.Is(err, service.ErrConfirmationFailed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Confirmation could not be completed. Please try the link again.",
			"code":  apperrors.CodeConfirmationFailed,
		})
	default:
		log.Error("Verification failed", err, nil)
		apperrors.InternalError(c, "")
	}
}

// userAgent prefers the caller-reported client UA (the web UI forwards
// the browser's) over the direct request header.
func userAgent(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.Request.UserAgent()
}
