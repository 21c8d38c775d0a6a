package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/logging"
)

// Identity headers injected by the upstream auth proxy.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	// RoleAdmin unlocks the /api/admin group.
	RoleAdmin = "admin"
)

const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// Identity reads the upstream identity headers into the request context.
// Requests without a parseable user id are rejected before any handler runs.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identità mancante"})
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identità non valida"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, c.GetHeader(HeaderUserRole))
		c.Next()
	}
}

// RequireAdmin gates a route group on the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "riservato agli amministratori"})
			return
		}
		c.Next()
	}
}

// RequestLogger emits one structured line per request, leveled on the
// response status.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id, ok := c.Get(ctxUserID); ok {
			fields = append(fields, "user_id", id.(uuid.UUID).String())
		}

		switch {
		case status >= 500:
			log.Error("richiesta HTTP", fields...)
		case status >= 400:
			log.Warn("richiesta HTTP", fields...)
		default:
			log.Info("richiesta HTTP", fields...)
		}
	}
}

// userID returns the authenticated user's id set by Identity.
func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxUserID).(uuid.UUID)
}
