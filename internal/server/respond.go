package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lectiolab/lectio/infrastructure/llm"
	"github.com/lectiolab/lectio/internal/domain"
)

// respondError maps a domain error onto an HTTP status. Unrecognized errors
// become an opaque 500; their detail goes to the log, not the client.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error("richiesta fallita",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		c.JSON(status, gin.H{"error": "errore interno"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, llm.ErrInvalidAPIKey):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStatusConflict):
		return http.StatusConflict
	case domain.IsQuotaExceeded(err):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrAINotAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
