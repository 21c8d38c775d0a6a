package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lectiolab/lectio/internal/application"
	"github.com/lectiolab/lectio/internal/domain"
)

type generateRequest struct {
	TopicID      *uuid.UUID `json:"topicId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ContentType  string     `json:"contentType"`
	DisciplineID uuid.UUID  `json:"disciplineId"`
	DocumentID   *uuid.UUID `json:"documentId"`
	ClassName    string     `json:"className"`
}

// POST /api/generate
//
// Inserts the placeholder and returns 202 immediately; clients follow the
// run through the status feed.
func (s *Server) createGeneration(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "corpo della richiesta non valido"})
		return
	}

	id, err := s.generator.CreateAndLaunch(c.Request.Context(), application.GenerateRequest{
		TopicID:      body.TopicID,
		Title:        body.Title,
		Description:  body.Description,
		ContentType:  domain.ContentType(body.ContentType),
		DisciplineID: body.DisciplineID,
		DocumentID:   body.DocumentID,
		ClassName:    body.ClassName,
		UserID:       userID(c),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     id,
		"status": domain.StatusGenerating,
	})
}

// GET /api/generation-status
func (s *Server) generationStatus(c *gin.Context) {
	feed, err := s.poller.Poll(c.Request.Context(), userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// POST /api/programs/:id/parse
//
// Starts the AI analysis of the program's raw text; the extracted modules
// and topics appear when the program reaches PARSED.
func (s *Server) parseProgram(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id del programma non valido"})
		return
	}
	if err := s.programs.Parse(c.Request.Context(), id, userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":     id,
		"status": domain.ProgramParsing,
	})
}

// GET /api/lessons/:id
func (s *Server) getLesson(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	lesson, err := s.lessons.Get(c.Request.Context(), id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// POST /api/lessons/:id/retry
func (s *Server) retryLesson(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	if err := s.generator.Retry(c.Request.Context(), id, userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":     id,
		"status": domain.StatusGenerating,
	})
}

// DELETE /api/lessons/:id
func (s *Server) deleteLesson(c *gin.Context) {
	id, ok := lessonID(c)
	if !ok {
		return
	}
	if err := s.lessons.Delete(c.Request.Context(), id, userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func lessonID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id della lezione non valido"})
		return uuid.Nil, false
	}
	return id, true
}
