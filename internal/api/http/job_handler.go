package http

import (
	"net/http"

	"jobboard/internal/browse"
	"jobboard/internal/domain"
	"jobboard/internal/saved"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// listJobs handles GET /api/v1/jobs.
func (s *Server) listJobs(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "handler.ListJobs")
	defer span.End()

	var q ListJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode query")
		renderFailure(c, domain.KindValidation, "invalid query: "+err.Error())
		return
	}
	q.normalize()
	if err := s.validate.Struct(q); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		renderFailure(c, domain.KindValidation, validationMessage(err))
		return
	}
	key, err := browse.ParseSortKey(q.Sort)
	if err != nil {
		recordFailure(span, err)
		renderError(c, err)
		return
	}

	res := s.gateway.ListJobs(ctx, q.ToSpec())
	if !res.Success {
		render(c, http.StatusOK, res)
		return
	}
	page := browse.Derive(res.Data, key, q.Pages)
	span.SetAttributes(attribute.Int("jobs.total", page.Total), attribute.Int("jobs.pages", page.Pages))
	c.JSON(http.StatusOK, domain.OK(page))
}

// getJob handles GET /api/v1/jobs/:id.
func (s *Server) getJob(c *gin.Context) {
	render(c, http.StatusOK, s.gateway.GetJobByID(c.Request.Context(), c.Param("id")))
}

// createJob handles POST /api/v1/jobs.
func (s *Server) createJob(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "handler.CreateJob")
	defer span.End()

	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req CreateJobRequest
	if !s.bind(c, &req) {
		span.SetStatus(codes.Error, "Validation failed")
		return
	}

	job := req.ToDomainJob()
	if req.ExpiresInDays > 0 {
		expires := s.now().AddDate(0, 0, req.ExpiresInDays)
		job.ExpiresAt = &expires
	}
	span.SetAttributes(attribute.String("company.id", job.CompanyID))
	render(c, http.StatusCreated, s.gateway.CreateJob(ctx, user, job))
}

// updateJobStatus handles PATCH /api/v1/jobs/:id/status.
func (s *Server) updateJobStatus(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req UpdateJobStatusRequest
	if !s.bind(c, &req) {
		return
	}
	render(c, http.StatusOK, s.gateway.UpdateJobStatus(c.Request.Context(), user, c.Param("id"), domain.JobStatus(req.Status)))
}

// toggleSaved handles POST /api/v1/jobs/:id/save. The caller's saved set is
// loaded first so the cache is rewritten with the complete set.
func (s *Server) toggleSaved(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "handler.ToggleSaved")
	defer span.End()
	jobID := c.Param("id")
	span.SetAttributes(attribute.String("job.id", jobID))

	mgr := saved.NewManager(s.gateway, s.opts.SavedCache, userID(c), s.logger)
	if err := mgr.Load(ctx); err != nil {
		recordFailure(span, err)
		renderError(c, err)
		return
	}
	isSaved, err := mgr.Toggle(ctx, jobID)
	if err != nil {
		recordFailure(span, err)
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.OK(domain.ToggleOutcome{Saved: isSaved}))
}

// listSaved handles GET /api/v1/saved.
func (s *Server) listSaved(c *gin.Context) {
	render(c, http.StatusOK, s.gateway.ListSavedJobs(c.Request.Context(), userID(c)))
}

func recordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
