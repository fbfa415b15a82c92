package postgres

import (
	"context"

	"jobboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type pgSavedJobRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewSavedJobRepository creates a new repository for saved jobs backed by PostgreSQL.
func NewSavedJobRepository(pool *pgxpool.Pool) domain.SavedJobRepository {
	return &pgSavedJobRepository{pool: pool, tracer: otel.Tracer("jobboard-postgres-repo")}
}

// Find returns the single saved record for (jobID, userID).
func (r *pgSavedJobRepository) Find(ctx context.Context, jobID, userID string) (*domain.SavedEntry, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.FindSaved")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID), attribute.String("user.id", userID))

	rows, err := r.pool.Query(ctx,
		`SELECT id::text, job_id::text, user_id, created_at FROM saved_jobs
		 WHERE job_id = $1::uuid AND user_id = $2 LIMIT 2`, jobID, userID)
	if err != nil {
		if hasCode(err, codeInvalidText) {
			return nil, domain.ErrSavedNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query saved job")
		return nil, wrapErr("find saved job", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SavedEntry, error) {
		var e domain.SavedEntry
		err := row.Scan(&e.ID, &e.JobID, &e.UserID, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		if hasCode(err, codeInvalidText) {
			return nil, domain.ErrSavedNotFound
		}
		return nil, wrapErr("scan saved job", err)
	}

	switch len(entries) {
	case 0:
		return nil, domain.ErrSavedNotFound
	case 1:
		return &entries[0], nil
	default:
		return nil, domain.ErrDuplicateSaved
	}
}

// Insert stores a saved record. A concurrent insert of the same pair is
// absorbed and the existing record returned.
func (r *pgSavedJobRepository) Insert(ctx context.Context, e *domain.SavedEntry) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.InsertSaved")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", e.JobID), attribute.String("user.id", e.UserID))

	err := r.pool.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO saved_jobs (job_id, user_id) VALUES ($1::uuid, $2)
		     ON CONFLICT (job_id, user_id) DO NOTHING
		     RETURNING id, created_at
		 )
		 SELECT id::text, created_at FROM ins
		 UNION ALL
		 SELECT id::text, created_at FROM saved_jobs WHERE job_id = $1::uuid AND user_id = $2
		 LIMIT 1`, e.JobID, e.UserID,
	).Scan(&e.ID, &e.CreatedAt)
	if hasCode(err, codeForeignKeyViolation) || hasCode(err, codeInvalidText) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert saved job")
		return wrapErr("insert saved job", err)
	}
	return nil
}

func (r *pgSavedJobRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.DeleteSaved")
	defer span.End()
	span.SetAttributes(attribute.String("saved.id", id))

	if _, err := r.pool.Exec(ctx, `DELETE FROM saved_jobs WHERE id = $1::uuid`, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete saved job")
		return wrapErr("delete saved job", err)
	}
	return nil
}

// ListByUser returns the user's saved records joined with their jobs,
// newest first.
func (r *pgSavedJobRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SavedEntry, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.ListSaved")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.pool.Query(ctx,
		`SELECT s.id::text, s.job_id::text, s.user_id, s.created_at, `+jobColumns+`
		 FROM saved_jobs s
		 JOIN jobs j ON j.id = s.job_id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at DESC`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list saved jobs")
		return nil, wrapErr("list saved jobs", err)
	}
	defer rows.Close()

	entries := make([]*domain.SavedEntry, 0)
	for rows.Next() {
		var (
			e domain.SavedEntry
			j domain.Job
		)
		if err := rows.Scan(
			&e.ID, &e.JobID, &e.UserID, &e.CreatedAt,
			&j.ID, &j.Title, &j.Description, &j.Location, &j.EmploymentType, &j.ExperienceLevel,
			&j.SalaryMin, &j.SalaryMax, &j.RemoteWork, &j.PostedAt, &j.ExpiresAt, &j.Status, &j.Featured,
			&j.CompanyID, &j.ViewsCount, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, wrapErr("scan saved job", err)
		}
		e.Job = &j
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list saved jobs", err)
	}
	return entries, nil
}
