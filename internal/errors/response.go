package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error body. Extra contextual fields
// (retryAfter, confirmedAt, ...) are attached by the controllers.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondWithError writes a standard error body
func RespondWithError(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Frequently used shortcuts

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, CodeAuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, CodeAuthzForbidden, message)
}

func BadRequest(c *gin.Context, code string, message string) {
	RespondWithError(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code string, message string) {
	RespondWithError(c, http.StatusNotFound, code, message)
}

func Conflict(c *gin.Context, code string, message string) {
	RespondWithError(c, http.StatusConflict, code, message)
}

func MethodNotAllowed(c *gin.Context) {
	RespondWithError(c, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "An internal error occurred. Please try again later"
	}
	RespondWithError(c, http.StatusInternalServerError, CodeInternalServerError, message)
}
