// Package http exposes the job board over a JSON HTTP API.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"jobboard/internal/domain"
	"jobboard/internal/saved"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultHeartbeat = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// Gateway is the job store boundary the handlers talk to.
type Gateway interface {
	saved.Gateway
	ListJobs(ctx context.Context, spec domain.FilterSpecification) domain.Result[[]domain.Job]
	GetJobByID(ctx context.Context, id string) domain.Result[domain.Job]
	CreateJob(ctx context.Context, actorID string, job *domain.Job) domain.Result[domain.Job]
	UpdateJobStatus(ctx context.Context, actorID, id string, status domain.JobStatus) domain.Result[domain.Job]
	ListCompanyJobs(ctx context.Context, companyID string) domain.Result[[]domain.Job]
	SaveCompany(ctx context.Context, actorID string, company *domain.Company) domain.Result[domain.Company]
	GetCompany(ctx context.Context, id string) domain.Result[domain.Company]
	ApplyToJob(ctx context.Context, app *domain.Application) domain.Result[domain.Application]
	ListApplications(ctx context.Context, actorID, jobID string) domain.Result[[]domain.Application]
	ListUserApplications(ctx context.Context, userID string) domain.Result[[]domain.Application]
	MoveApplication(ctx context.Context, actorID, id string, status domain.ApplicationStatus) domain.Result[domain.Application]
	SubscribeToJobChanges(ctx context.Context, onChange func(domain.ChangeEvent)) (domain.Subscription, error)
}

// Cluster reports the replicas currently serving.
type Cluster interface {
	Nodes() []string
}

// Options configures the HTTP server.
type Options struct {
	AllowedOrigins  []string
	JWTSecret       string
	SavedCache      saved.Cache
	Cluster         Cluster
	StreamHeartbeat time.Duration
}

// Server wires the gin engine to the gateway.
type Server struct {
	gateway   Gateway
	opts      Options
	logger    *slog.Logger
	validate  *validator.Validate
	tracer    trace.Tracer
	router    *gin.Engine
	now       func() time.Time
	heartbeat time.Duration
}

// NewServer builds the router with every route registered.
func NewServer(gateway Gateway, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		gateway:   gateway,
		opts:      opts,
		logger:    logger.With("component", "http-api"),
		validate:  newValidator(),
		tracer:    otel.Tracer("jobboard-api"),
		now:       time.Now,
		heartbeat: opts.StreamHeartbeat,
	}
	if s.heartbeat <= 0 {
		s.heartbeat = defaultHeartbeat
	}
	s.router = s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", userIDHeader}
	return cfg
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(s.opts.AllowedOrigins)))
	r.Use(instrument(s.tracer))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1", identify(s.opts.JWTSecret))
	{
		api.GET("/jobs", s.listJobs)
		api.POST("/jobs", s.createJob)
		api.GET("/jobs/stream", s.streamChanges)
		api.GET("/jobs/:id", s.getJob)
		api.PATCH("/jobs/:id/status", s.updateJobStatus)
		api.POST("/jobs/:id/save", s.toggleSaved)
		api.POST("/jobs/:id/applications", s.applyToJob)
		api.GET("/jobs/:id/applications", s.listJobApplications)

		api.GET("/saved", s.listSaved)

		api.GET("/applications", s.listMyApplications)
		api.PATCH("/applications/:id/status", s.moveApplication)

		api.POST("/companies", s.saveCompany)
		api.GET("/companies/:id", s.getCompany)
		api.GET("/companies/:id/jobs", s.listCompanyJobs)
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if s.opts.Cluster != nil {
		status["nodes"] = s.opts.Cluster.Nodes()
	}
	c.JSON(http.StatusOK, domain.OK(status))
}
