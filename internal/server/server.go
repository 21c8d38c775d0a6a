// Package server exposes the engine over HTTP. Authentication happens
// upstream; this layer trusts the identity headers the proxy injects and
// translates domain errors into status codes.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/lectiolab/lectio/internal/application"
	"github.com/lectiolab/lectio/internal/logging"
)

// Server holds the application services the HTTP handlers delegate to.
type Server struct {
	generator   *application.Generator
	programs    *application.Programs
	poller      *application.Poller
	lessons     *application.Lessons
	credentials *application.Credentials
	log         *logging.Logger
}

// New wires a Server over the application layer.
func New(
	generator *application.Generator,
	programs *application.Programs,
	poller *application.Poller,
	lessons *application.Lessons,
	credentials *application.Credentials,
	log *logging.Logger,
) *Server {
	return &Server{
		generator:   generator,
		programs:    programs,
		poller:      poller,
		lessons:     lessons,
		credentials: credentials,
		log:         log,
	}
}

// Router builds the gin engine. Everything under /api requires the identity
// headers; /api/admin additionally requires the admin role.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.Use(Identity())
	{
		api.POST("/generate", s.createGeneration)
		api.GET("/generation-status", s.generationStatus)

		api.POST("/programs/:id/parse", s.parseProgram)

		api.GET("/lessons/:id", s.getLesson)
		api.POST("/lessons/:id/retry", s.retryLesson)
		api.DELETE("/lessons/:id", s.deleteLesson)

		api.GET("/settings/api-key", s.personalKeyStatus)
		api.PUT("/settings/api-key", s.savePersonalKey)
		api.DELETE("/settings/api-key", s.removePersonalKey)

		admin := api.Group("/admin")
		admin.Use(RequireAdmin())
		{
			admin.GET("/ai-key", s.systemKeyStatus)
			admin.PUT("/ai-key", s.saveSystemKey)
			admin.DELETE("/ai-key", s.removeSystemKey)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
