package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"jobboard/internal/domain"
	"jobboard/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ConnectivityMessage is reported for every failure to reach the job store.
const ConnectivityMessage = "unable to reach the job store; the service may be temporarily unavailable, please try again later"

const defaultViewTimeout = 5 * time.Second

// Stores bundles the repositories the gateway reads and writes.
type Stores struct {
	Jobs         domain.JobRepository
	Companies    domain.CompanyRepository
	Saved        domain.SavedJobRepository
	Applications domain.ApplicationRepository
}

// JobGateway is the boundary between callers and the job store. Every
// operation reports its outcome as a domain.Result; errors never cross it.
type JobGateway struct {
	stores      Stores
	feed        domain.ChangeFeed
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	viewTimeout time.Duration
}

// NewJobGateway creates a new JobGateway instance.
func NewJobGateway(stores Stores, feed domain.ChangeFeed, logger *slog.Logger) *JobGateway {
	return &JobGateway{
		stores:      stores,
		feed:        feed,
		logger:      logger.With("component", "gateway"),
		tracer:      otel.Tracer("jobboard-usecase"),
		now:         time.Now,
		viewTimeout: defaultViewTimeout,
	}
}

// SetClock replaces the clock used for recency cutoffs and event timestamps.
func (g *JobGateway) SetClock(now func() time.Time) { g.now = now }

// ListJobs returns the active jobs matching spec, newest posting first.
func (g *JobGateway) ListJobs(ctx context.Context, spec domain.FilterSpecification) domain.Result[[]domain.Job] {
	ctx, span := g.tracer.Start(ctx, "gateway.ListJobs")
	defer span.End()
	span.SetAttributes(
		attribute.String("filter.search", spec.Search),
		attribute.String("filter.posted_within", string(spec.PostedWithin)),
	)

	if spec.RemoteWork != nil {
		span.SetAttributes(attribute.Bool("filter.remote_work", *spec.RemoteWork))
	}
	if err := spec.Validate(); err != nil {
		return fail[[]domain.Job](span, "list_jobs", err)
	}
	jobs, err := g.stores.Jobs.List(ctx, spec, g.now())
	if err != nil {
		return fail[[]domain.Job](span, "list_jobs", err)
	}
	span.SetAttributes(attribute.Int("jobs.count", len(jobs)))
	return succeed("list_jobs", derefJobs(jobs))
}

// GetJobByID fetches one job with its company and bumps its view counter in
// the background. A failed increment is logged and never fails the read.
func (g *JobGateway) GetJobByID(ctx context.Context, id string) domain.Result[domain.Job] {
	ctx, span := g.tracer.Start(ctx, "gateway.GetJobByID")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id))

	if strings.TrimSpace(id) == "" {
		return fail[domain.Job](span, "get_job", &domain.ValidationError{Msg: "job id cannot be empty"})
	}
	job, err := g.stores.Jobs.Get(ctx, id)
	if err != nil {
		return fail[domain.Job](span, "get_job", err)
	}

	incCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.viewTimeout)
	go func() {
		defer cancel()
		if err := g.stores.Jobs.IncrementViews(incCtx, id); err != nil {
			g.logger.Warn("failed to increment job views", "job_id", id, "error", err)
		}
	}()

	return succeed("get_job", *job)
}

// ToggleSavedJob flips the saved state of (jobID, userID) and reports the
// resulting state. Only a missing record enables the insert branch; any
// other lookup failure fails the toggle.
func (g *JobGateway) ToggleSavedJob(ctx context.Context, jobID, userID string) domain.Result[domain.ToggleOutcome] {
	ctx, span := g.tracer.Start(ctx, "gateway.ToggleSavedJob")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID), attribute.String("user.id", userID))

	if userID == "" {
		return fail[domain.ToggleOutcome](span, "toggle_saved", domain.ErrAuthRequired)
	}
	if jobID == "" {
		return fail[domain.ToggleOutcome](span, "toggle_saved", &domain.ValidationError{Msg: "job id cannot be empty"})
	}

	existing, err := g.stores.Saved.Find(ctx, jobID, userID)
	switch {
	case err == nil:
		if err := g.stores.Saved.Delete(ctx, existing.ID); err != nil {
			return fail[domain.ToggleOutcome](span, "toggle_saved", err)
		}
		span.SetAttributes(attribute.Bool("saved", false))
		return succeed("toggle_saved", domain.ToggleOutcome{Saved: false})
	case errors.Is(err, domain.ErrSavedNotFound):
		entry := &domain.SavedEntry{JobID: jobID, UserID: userID}
		if err := g.stores.Saved.Insert(ctx, entry); err != nil {
			return fail[domain.ToggleOutcome](span, "toggle_saved", err)
		}
		span.SetAttributes(attribute.Bool("saved", true))
		return succeed("toggle_saved", domain.ToggleOutcome{Saved: true})
	default:
		return fail[domain.ToggleOutcome](span, "toggle_saved", fmt.Errorf("check saved job: %w", err))
	}
}

// ListSavedJobs returns the user's saved entries joined with their jobs.
func (g *JobGateway) ListSavedJobs(ctx context.Context, userID string) domain.Result[[]domain.SavedEntry] {
	ctx, span := g.tracer.Start(ctx, "gateway.ListSavedJobs")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if userID == "" {
		return fail[[]domain.SavedEntry](span, "list_saved", domain.ErrAuthRequired)
	}
	entries, err := g.stores.Saved.ListByUser(ctx, userID)
	if err != nil {
		return fail[[]domain.SavedEntry](span, "list_saved", err)
	}
	out := make([]domain.SavedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return succeed("list_saved", out)
}

// SubscribeToJobChanges registers onChange for every change to the jobs
// table. The caller owns the returned handle and must release it.
func (g *JobGateway) SubscribeToJobChanges(ctx context.Context, onChange func(domain.ChangeEvent)) (domain.Subscription, error) {
	if g.feed == nil {
		return nil, errors.New("no change feed configured")
	}
	sub, err := g.feed.Subscribe(ctx, func(ev domain.ChangeEvent) {
		metrics.JobChangeEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
		onChange(ev)
	})
	if err != nil {
		g.logger.Error("failed to subscribe to job changes", "error", err)
		return nil, err
	}
	return sub, nil
}

// CreateJob validates and stores a new posting for a company actorID owns.
func (g *JobGateway) CreateJob(ctx context.Context, actorID string, job *domain.Job) domain.Result[domain.Job] {
	ctx, span := g.tracer.Start(ctx, "gateway.CreateJob")
	defer span.End()

	if err := job.Validate(); err != nil {
		return fail[domain.Job](span, "create_job", err)
	}
	if err := g.authorizeCompany(ctx, actorID, job.CompanyID); err != nil {
		return fail[domain.Job](span, "create_job", err)
	}
	if err := g.stores.Jobs.Create(ctx, job); err != nil {
		return fail[domain.Job](span, "create_job", err)
	}
	span.SetAttributes(attribute.String("job.id", job.ID))
	g.publish(ctx, domain.ChangeInsert, job.ID)
	return succeed("create_job", *job)
}

// UpdateJobStatus activates or deactivates a posting of a company actorID owns.
func (g *JobGateway) UpdateJobStatus(ctx context.Context, actorID, id string, status domain.JobStatus) domain.Result[domain.Job] {
	ctx, span := g.tracer.Start(ctx, "gateway.UpdateJobStatus")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id), attribute.String("job.status", string(status)))

	if !status.Valid() {
		return fail[domain.Job](span, "update_job_status", &domain.ValidationError{Msg: fmt.Sprintf("invalid job status: %q", status)})
	}
	if err := g.authorizeJob(ctx, actorID, id); err != nil {
		return fail[domain.Job](span, "update_job_status", err)
	}
	job, err := g.stores.Jobs.UpdateStatus(ctx, id, status)
	if err != nil {
		return fail[domain.Job](span, "update_job_status", err)
	}
	g.publish(ctx, domain.ChangeUpdate, id)
	return succeed("update_job_status", *job)
}

// ListCompanyJobs returns every posting of a company regardless of status.
func (g *JobGateway) ListCompanyJobs(ctx context.Context, companyID string) domain.Result[[]domain.Job] {
	ctx, span := g.tracer.Start(ctx, "gateway.ListCompanyJobs")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	jobs, err := g.stores.Jobs.ListByCompany(ctx, companyID)
	if err != nil {
		return fail[[]domain.Job](span, "list_company_jobs", err)
	}
	return succeed("list_company_jobs", derefJobs(jobs))
}

// SaveCompany creates a company profile owned by actorID, or updates one
// actorID already owns.
func (g *JobGateway) SaveCompany(ctx context.Context, actorID string, company *domain.Company) domain.Result[domain.Company] {
	ctx, span := g.tracer.Start(ctx, "gateway.SaveCompany")
	defer span.End()

	if actorID == "" {
		return fail[domain.Company](span, "save_company", domain.ErrAuthRequired)
	}
	company.OwnerID = actorID
	if err := company.Validate(); err != nil {
		return fail[domain.Company](span, "save_company", err)
	}
	if err := g.stores.Companies.Save(ctx, company); err != nil {
		return fail[domain.Company](span, "save_company", err)
	}
	span.SetAttributes(attribute.String("company.id", company.ID))
	return succeed("save_company", *company)
}

func (g *JobGateway) GetCompany(ctx context.Context, id string) domain.Result[domain.Company] {
	ctx, span := g.tracer.Start(ctx, "gateway.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	company, err := g.stores.Companies.Get(ctx, id)
	if err != nil {
		return fail[domain.Company](span, "get_company", err)
	}
	return succeed("get_company", *company)
}

// ApplyToJob records an application to an active posting. A user may apply
// to a job once.
func (g *JobGateway) ApplyToJob(ctx context.Context, app *domain.Application) domain.Result[domain.Application] {
	ctx, span := g.tracer.Start(ctx, "gateway.ApplyToJob")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", app.JobID), attribute.String("user.id", app.UserID))

	if err := app.Validate(); err != nil {
		return fail[domain.Application](span, "apply", err)
	}
	job, err := g.stores.Jobs.Get(ctx, app.JobID)
	if err != nil {
		return fail[domain.Application](span, "apply", err)
	}
	if job.Status != domain.JobStatusActive {
		return fail[domain.Application](span, "apply", &domain.ValidationError{Msg: "job is no longer accepting applications"})
	}
	if err := g.stores.Applications.Create(ctx, app); err != nil {
		return fail[domain.Application](span, "apply", err)
	}
	return succeed("apply", *app)
}

// ListApplications returns the applications received for a job of a
// company actorID owns.
func (g *JobGateway) ListApplications(ctx context.Context, actorID, jobID string) domain.Result[[]domain.Application] {
	ctx, span := g.tracer.Start(ctx, "gateway.ListApplications")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	if err := g.authorizeJob(ctx, actorID, jobID); err != nil {
		return fail[[]domain.Application](span, "list_applications", err)
	}
	apps, err := g.stores.Applications.ListByJob(ctx, jobID)
	if err != nil {
		return fail[[]domain.Application](span, "list_applications", err)
	}
	return succeed("list_applications", derefApplications(apps))
}

// ListUserApplications returns the applications a user submitted.
func (g *JobGateway) ListUserApplications(ctx context.Context, userID string) domain.Result[[]domain.Application] {
	ctx, span := g.tracer.Start(ctx, "gateway.ListUserApplications")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if userID == "" {
		return fail[[]domain.Application](span, "list_user_applications", domain.ErrAuthRequired)
	}
	apps, err := g.stores.Applications.ListByUser(ctx, userID)
	if err != nil {
		return fail[[]domain.Application](span, "list_user_applications", err)
	}
	return succeed("list_user_applications", derefApplications(apps))
}

// MoveApplication advances an application through the review pipeline. The
// owner of the job's company may make any allowed move; the applicant may
// only withdraw.
func (g *JobGateway) MoveApplication(ctx context.Context, actorID, id string, status domain.ApplicationStatus) domain.Result[domain.Application] {
	ctx, span := g.tracer.Start(ctx, "gateway.MoveApplication")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", id), attribute.String("application.status", string(status)))

	if actorID == "" {
		return fail[domain.Application](span, "move_application", domain.ErrAuthRequired)
	}
	current, err := g.stores.Applications.Get(ctx, id)
	if err != nil {
		return fail[domain.Application](span, "move_application", err)
	}
	if actorID != current.UserID || status != domain.ApplicationWithdrawn {
		if err := g.authorizeJob(ctx, actorID, current.JobID); err != nil {
			return fail[domain.Application](span, "move_application", err)
		}
	}
	if !domain.IsApplicationTransitionAllowed(current.Status, status) {
		msg := fmt.Sprintf("cannot move application from %s to %s", current.Status, status)
		return fail[domain.Application](span, "move_application", &domain.ValidationError{Msg: msg})
	}
	app, err := g.stores.Applications.UpdateStatus(ctx, id, status)
	if err != nil {
		return fail[domain.Application](span, "move_application", err)
	}
	return succeed("move_application", *app)
}

// DeactivateExpired flips every active posting whose expiry has passed to
// inactive and announces each change.
func (g *JobGateway) DeactivateExpired(ctx context.Context) ([]string, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.DeactivateExpired")
	defer span.End()

	ids, err := g.stores.Jobs.DeactivateExpired(ctx, g.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deactivate expired jobs")
		return nil, err
	}
	span.SetAttributes(attribute.Int("jobs.expired", len(ids)))
	for _, id := range ids {
		g.publish(ctx, domain.ChangeUpdate, id)
	}
	return ids, nil
}

// authorizeJob fails unless actorID owns the company that posted jobID.
func (g *JobGateway) authorizeJob(ctx context.Context, actorID, jobID string) error {
	if actorID == "" {
		return domain.ErrAuthRequired
	}
	job, err := g.stores.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return g.authorizeCompany(ctx, actorID, job.CompanyID)
}

func (g *JobGateway) authorizeCompany(ctx context.Context, actorID, companyID string) error {
	if actorID == "" {
		return domain.ErrAuthRequired
	}
	company, err := g.stores.Companies.Get(ctx, companyID)
	if err != nil {
		return err
	}
	if company.OwnerID != actorID {
		return domain.ErrForbidden
	}
	return nil
}

func (g *JobGateway) publish(ctx context.Context, kind domain.ChangeKind, jobID string) {
	if g.feed == nil {
		return
	}
	ev := domain.ChangeEvent{Kind: kind, JobID: jobID, At: g.now()}
	if err := g.feed.Publish(ctx, ev); err != nil {
		g.logger.Warn("failed to publish job change", "kind", kind, "job_id", jobID, "error", err)
	}
}

// Classify maps an error to the kind and message reported to callers.
func Classify(err error) (domain.ErrorKind, string) {
	var (
		vErr   *domain.ValidationError
		netErr net.Error
	)
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return domain.KindConnectivity, ConnectivityMessage
	case errors.As(err, &vErr):
		return domain.KindValidation, vErr.Msg
	case errors.Is(err, domain.ErrAuthRequired):
		return domain.KindAuth, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return domain.KindForbidden, err.Error()
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrCompanyNotFound),
		errors.Is(err, domain.ErrApplicationNotFound),
		errors.Is(err, domain.ErrSavedNotFound):
		return domain.KindNotFound, err.Error()
	case errors.Is(err, domain.ErrAlreadyApplied):
		return domain.KindConflict, err.Error()
	default:
		return domain.KindQuery, err.Error()
	}
}

func succeed[T any](op string, data T) domain.Result[T] {
	metrics.GatewayOperationsTotal.WithLabelValues(op, "success").Inc()
	return domain.OK(data)
}

func fail[T any](span trace.Span, op string, err error) domain.Result[T] {
	kind, msg := Classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	metrics.GatewayOperationsTotal.WithLabelValues(op, string(kind)).Inc()
	return domain.Fail[T](kind, msg)
}

func derefJobs(jobs []*domain.Job) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, *j)
	}
	return out
}

func derefApplications(apps []*domain.Application) []domain.Application {
	out := make([]domain.Application, 0, len(apps))
	for _, a := range apps {
		out = append(out, *a)
	}
	return out
}
