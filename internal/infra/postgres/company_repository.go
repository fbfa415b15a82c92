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

type pgCompanyRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewCompanyRepository creates a new repository for companies backed by PostgreSQL.
func NewCompanyRepository(pool *pgxpool.Pool) domain.CompanyRepository {
	return &pgCompanyRepository{pool: pool, tracer: otel.Tracer("jobboard-postgres-repo")}
}

// Save upserts a company profile. The conflict update only applies while the
// stored owner matches, so a foreign profile yields no row.
func (r *pgCompanyRepository) Save(ctx context.Context, c *domain.Company) error {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.SaveCompany")
	defer span.End()

	var id *string
	if c.ID != "" {
		id = &c.ID
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO companies (id, name, logo_url, industry, size, website, description, owner_id)
		 VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name, logo_url = EXCLUDED.logo_url, industry = EXCLUDED.industry,
		     size = EXCLUDED.size, website = EXCLUDED.website, description = EXCLUDED.description,
		     updated_at = now()
		 WHERE companies.owner_id = EXCLUDED.owner_id
		 RETURNING id::text, created_at, updated_at`,
		id, c.Name, c.LogoURL, c.Industry, string(c.Size), c.Website, c.Description, c.OwnerID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if hasCode(err, codeInvalidText) {
		return &domain.ValidationError{Msg: "company id must be a uuid"}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrForbidden
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save company")
		return wrapErr("save company", err)
	}
	span.SetAttributes(attribute.String("company.id", c.ID))
	return nil
}

func (r *pgCompanyRepository) Get(ctx context.Context, id string) (*domain.Company, error) {
	ctx, span := r.tracer.Start(ctx, "repo.postgres.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	var c domain.Company
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, name, logo_url, industry, size, website, description, owner_id, created_at, updated_at
		 FROM companies WHERE id = $1::uuid`, id,
	).Scan(&c.ID, &c.Name, &c.LogoURL, &c.Industry, &c.Size, &c.Website, &c.Description, &c.OwnerID,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || hasCode(err, codeInvalidText) {
		return nil, domain.ErrCompanyNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get company")
		return nil, wrapErr("get company", err)
	}
	return &c, nil
}
