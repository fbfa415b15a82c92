package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type pgJobRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	tracer trace.Tracer
}

// NewJobRepository creates a new repository for jobs backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool, logger *slog.Logger) domain.JobRepository {
	return &pgJobRepository{
		pool:   pool,
		logger: logger.With("component", "postgres-jobs"),
		tracer: otel.Tracer("jobboard-postgres-repo"),
	}
}

func scanJob(row pgx.Row, j *domain.Job) error {
	return row.Scan(
		&j.ID, &j.Title, &j.Description, &j.Location, &j.EmploymentType, &j.ExperienceLevel,
		&j.SalaryMin, &j.SalaryMax, &j.RemoteWork, &j.PostedAt, &j.ExpiresAt, &j.Status, &j.Featured,
		&j.CompanyID, &j.ViewsCount, &j.CreatedAt, &j.UpdatedAt,
	)
}

func collectJobs(rows pgx.Rows) ([]*domain.Job, error) {
	defer rows.Close()
	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		var j domain.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// List returns active jobs matching filter, newest posting first.
func (r *pgJobRepository) List(ctx context.Context, filter domain.FilterSpecification, now time.Time) ([]*domain.Job, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.ListJobs")
	defer span.End()

	sql, args := buildJobQuery(filter, now)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query jobs")
		return nil, wrapErr("list jobs", err)
	}
	jobs, err := collectJobs(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scan jobs")
		return nil, wrapErr("scan jobs", err)
	}
	span.SetAttributes(attribute.Int("jobs.count", len(jobs)))
	return jobs, nil
}

// ListByCompany returns every job of a company regardless of status.
func (r *pgJobRepository) ListByCompany(ctx context.Context, companyID string) ([]*domain.Job, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.ListCompanyJobs")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.company_id = $1::uuid ORDER BY j.posted_at DESC`, companyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query company jobs")
		return nil, wrapErr("list company jobs", err)
	}
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, wrapErr("scan company jobs", err)
	}
	return jobs, nil
}

// Get fetches a job joined with its company.
func (r *pgJobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.GetJob")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id))

	var (
		j domain.Job
		c domain.Company
	)
	err := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+`,
		        c.id::text, c.name, c.logo_url, c.industry, c.size, c.website, c.description, c.owner_id,
		        c.created_at, c.updated_at
		 FROM jobs j
		 JOIN companies c ON c.id = j.company_id
		 WHERE j.id = $1::uuid`, id,
	).Scan(
		&j.ID, &j.Title, &j.Description, &j.Location, &j.EmploymentType, &j.ExperienceLevel,
		&j.SalaryMin, &j.SalaryMax, &j.RemoteWork, &j.PostedAt, &j.ExpiresAt, &j.Status, &j.Featured,
		&j.CompanyID, &j.ViewsCount, &j.CreatedAt, &j.UpdatedAt,
		&c.ID, &c.Name, &c.LogoURL, &c.Industry, &c.Size, &c.Website, &c.Description, &c.OwnerID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || hasCode(err, codeInvalidText) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get job")
		return nil, wrapErr(fmt.Sprintf("get job %s", id), err)
	}
	j.Company = &c
	return &j, nil
}

// Create inserts a job. Missing ID and posting time are filled in by the
// database.
func (r *pgJobRepository) Create(ctx context.Context, job *domain.Job) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.CreateJob")
	defer span.End()

	var postedAt *time.Time
	if !job.PostedAt.IsZero() {
		postedAt = &job.PostedAt
	}
	var id *string
	if job.ID != "" {
		id = &job.ID
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, title, description, location, employment_type, experience_level,
		                   salary_min, salary_max, remote_work, posted_at, expires_at, status, featured, company_id)
		 VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9,
		         COALESCE($10, now()), $11, $12, $13, $14::uuid)
		 RETURNING id::text, posted_at, created_at, updated_at`,
		id, job.Title, job.Description, job.Location, string(job.EmploymentType), string(job.ExperienceLevel),
		job.SalaryMin, job.SalaryMax, job.RemoteWork, postedAt, job.ExpiresAt, string(job.Status), job.Featured,
		job.CompanyID,
	).Scan(&job.ID, &job.PostedAt, &job.CreatedAt, &job.UpdatedAt)
	if hasCode(err, codeForeignKeyViolation) || hasCode(err, codeInvalidText) {
		return domain.ErrCompanyNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert job")
		return wrapErr("create job", err)
	}
	span.SetAttributes(attribute.String("job.id", job.ID))
	return nil
}

func (r *pgJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus) (*domain.Job, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.UpdateJobStatus")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id), attribute.String("job.status", string(status)))

	var j domain.Job
	err := scanJob(r.pool.QueryRow(ctx,
		`UPDATE jobs j SET status = $2, updated_at = now() WHERE j.id = $1::uuid RETURNING `+jobColumns,
		id, string(status)), &j)
	if errors.Is(err, pgx.ErrNoRows) || hasCode(err, codeInvalidText) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update job status")
		return nil, wrapErr("update job status", err)
	}
	return &j, nil
}

// IncrementViews calls the server-side increment procedure.
func (r *pgJobRepository) IncrementViews(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.IncrementViews")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", id))

	if _, err := r.pool.Exec(ctx, `SELECT increment_job_views($1::uuid)`, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to increment views")
		return wrapErr("increment job views", err)
	}
	return nil
}

// DeactivateExpired marks active jobs past their expiry inactive and
// returns their IDs.
func (r *pgJobRepository) DeactivateExpired(ctx context.Context, now time.Time) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.DeactivateExpired")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`UPDATE jobs SET status = $1, updated_at = now()
		 WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < $3
		 RETURNING id::text`,
		string(domain.JobStatusInactive), string(domain.JobStatusActive), now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deactivate expired jobs")
		return nil, wrapErr("deactivate expired jobs", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("scan expired jobs", err)
	}
	span.SetAttributes(attribute.Int("jobs.expired", len(ids)))
	if len(ids) > 0 {
		r.logger.Info("deactivated expired jobs", "count", len(ids))
	}
	return ids, nil
}
