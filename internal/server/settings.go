package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lectiolab/lectio/internal/domain"
)

type apiKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// GET /api/settings/api-key
func (s *Server) personalKeyStatus(c *gin.Context) {
	status, err := s.credentials.PersonalStatus(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// PUT /api/settings/api-key
//
// The key is validated against the provider before it is stored, so a 2xx
// here means the key worked at least once.
func (s *Server) savePersonalKey(c *gin.Context) {
	var body apiKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "corpo della richiesta non valido"})
		return
	}
	err := s.credentials.SavePersonal(c.Request.Context(), userID(c), domain.Provider(body.Provider), body.APIKey)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/settings/api-key
func (s *Server) removePersonalKey(c *gin.Context) {
	if err := s.credentials.RemovePersonal(c.Request.Context(), userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/admin/ai-key
func (s *Server) systemKeyStatus(c *gin.Context) {
	status, err := s.credentials.SystemStatus(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// PUT /api/admin/ai-key
func (s *Server) saveSystemKey(c *gin.Context) {
	var body apiKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "corpo della richiesta non valido"})
		return
	}
	if err := s.credentials.SaveSystem(c.Request.Context(), body.APIKey); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/admin/ai-key
func (s *Server) removeSystemKey(c *gin.Context) {
	if err := s.credentials.RemoveSystem(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
