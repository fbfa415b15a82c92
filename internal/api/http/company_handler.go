package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// saveCompany handles POST /api/v1/companies. A new profile is owned by the
// caller; only the owner may update an existing one.
func (s *Server) saveCompany(c *gin.Context) {
	owner, ok := requireUser(c)
	if !ok {
		return
	}
	var req CompanyRequest
	if !s.bind(c, &req) {
		return
	}
	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	render(c, status, s.gateway.SaveCompany(c.Request.Context(), owner, req.ToDomainCompany(owner)))
}

func (s *Server) getCompany(c *gin.Context) {
	render(c, http.StatusOK, s.gateway.GetCompany(c.Request.Context(), c.Param("id")))
}

func (s *Server) listCompanyJobs(c *gin.Context) {
	render(c, http.StatusOK, s.gateway.ListCompanyJobs(c.Request.Context(), c.Param("id")))
}
