package postgres

import (
	"context"
	"errors"

	"jobboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const applicationColumns = `id::text, job_id::text, user_id, cover_letter, resume_url, status, created_at, updated_at`

type pgApplicationRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewApplicationRepository creates a new repository for applications backed by PostgreSQL.
func NewApplicationRepository(pool *pgxpool.Pool) domain.ApplicationRepository {
	return &pgApplicationRepository{pool: pool, tracer: otel.Tracer("jobboard-postgres-repo")}
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var a domain.Application
	err := row.Scan(&a.ID, &a.JobID, &a.UserID, &a.CoverLetter, &a.ResumeURL, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *pgApplicationRepository) Create(ctx context.Context, a *domain.Application) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.CreateApplication")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", a.JobID), attribute.String("user.id", a.UserID))

	err := r.pool.QueryRow(ctx,
		`INSERT INTO applications (job_id, user_id, cover_letter, resume_url, status)
		 VALUES ($1::uuid, $2, $3, $4, $5)
		 RETURNING id::text, created_at, updated_at`,
		a.JobID, a.UserID, a.CoverLetter, a.ResumeURL, string(a.Status),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	switch {
	case hasCode(err, codeUniqueViolation):
		return domain.ErrAlreadyApplied
	case hasCode(err, codeForeignKeyViolation), hasCode(err, codeInvalidText):
		return domain.ErrJobNotFound
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert application")
		return wrapErr("create application", err)
	}
	return nil
}

func (r *pgApplicationRepository) Get(ctx context.Context, id string) (*domain.Application, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.GetApplication")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", id))

	a, err := scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) || hasCode(err, codeInvalidText) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get application")
		return nil, wrapErr("get application", err)
	}
	return a, nil
}

func (r *pgApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]*domain.Application, error) {
	return r.list(ctx, "repo.postgres.ListJobApplications",
		`SELECT `+applicationColumns+` FROM applications WHERE job_id = $1::uuid ORDER BY created_at DESC`, jobID)
}

func (r *pgApplicationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Application, error) {
	return r.list(ctx, "repo.postgres.ListUserApplications",
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgApplicationRepository) list(ctx context.Context, spanName, sql string, arg string) ([]*domain.Application, error) {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()

	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		if hasCode(err, codeInvalidText) {
			return []*domain.Application{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list applications")
		return nil, wrapErr("list applications", err)
	}
	defer rows.Close()

	apps := make([]*domain.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, wrapErr("scan application", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		if hasCode(err, codeInvalidText) {
			return []*domain.Application{}, nil
		}
		return nil, wrapErr("list applications", err)
	}
	return apps, nil
}

func (r *pgApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.UpdateApplicationStatus")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", id), attribute.String("application.status", string(status)))

	a, err := scanApplication(r.pool.QueryRow(ctx,
		`UPDATE applications SET status = $2, updated_at = now() WHERE id = $1::uuid RETURNING `+applicationColumns,
		id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) || hasCode(err, codeInvalidText) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update application status")
		return nil, wrapErr("update application status", err)
	}
	return a, nil
}
