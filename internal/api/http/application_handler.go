package http

import (
	"net/http"

	"jobboard/internal/domain"

	"github.com/gin-gonic/gin"
)

// applyToJob handles POST /api/v1/jobs/:id/applications.
func (s *Server) applyToJob(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req ApplyRequest
	if !s.bind(c, &req) {
		return
	}
	app := &domain.Application{
		JobID:       c.Param("id"),
		UserID:      user,
		CoverLetter: req.CoverLetter,
		ResumeURL:   req.ResumeURL,
	}
	render(c, http.StatusCreated, s.gateway.ApplyToJob(c.Request.Context(), app))
}

// listJobApplications handles GET /api/v1/jobs/:id/applications.
func (s *Server) listJobApplications(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	render(c, http.StatusOK, s.gateway.ListApplications(c.Request.Context(), user, c.Param("id")))
}

// listMyApplications handles GET /api/v1/applications.
func (s *Server) listMyApplications(c *gin.Context) {
	render(c, http.StatusOK, s.gateway.ListUserApplications(c.Request.Context(), userID(c)))
}

// moveApplication handles PATCH /api/v1/applications/:id/status.
func (s *Server) moveApplication(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req MoveApplicationRequest
	if !s.bind(c, &req) {
		return
	}
	render(c, http.StatusOK, s.gateway.MoveApplication(c.Request.Context(), user, c.Param("id"), domain.ApplicationStatus(req.Status)))
}
