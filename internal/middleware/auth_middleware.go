package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/mjlee/confirmail-backend/internal/errors"
	"github.com/mjlee/confirmail-backend/pkg/util"
)

// Context keys set after successful authentication
const (
	AdminSubjectKey = "admin_subject"
	AdminRoleKey    = "admin_role"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// RequireAdmin validates the bearer token and requires the admin role.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.CodeAuthTokenInvalid, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.CodeAuthTokenExpired, "Access token has expired")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.CodeAuthTokenInvalid, "Invalid access token")
			}
			c.Abort()
			return
		}

		if claims.Role != "admin" {
			log.Warn("Non-admin token on admin route", map[string]interface{}{
				"path":    c.Request.URL.Path,
				"subject": claims.Subject,
			})
			apperrors.Forbidden(c, "")
			c.Abort()
			return
		}

		c.Set(AdminSubjectKey, claims.Subject)
		c.Set(AdminRoleKey, claims.Role)

		c.Next()
	}
}
