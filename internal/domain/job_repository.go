package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job postings.
type JobRepository interface {
	// List returns active jobs matching the filter, newest posting first.
	List(ctx context.Context, filter FilterSpecification, now time.Time) ([]*Job, error)
	// ListByCompany returns every job of a company regardless of status.
	ListByCompany(ctx context.Context, companyID string) ([]*Job, error)
	// Get returns a job with its company joined, or ErrJobNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	Create(ctx context.Context, job *Job) error
	UpdateStatus(ctx context.Context, id string, status JobStatus) (*Job, error)
	// IncrementViews bumps the view counter server-side.
	IncrementViews(ctx context.Context, id string) error
	// DeactivateExpired flips active jobs whose expiry has passed to inactive
	// and returns their IDs.
	DeactivateExpired(ctx context.Context, now time.Time) ([]string, error)
}

// CompanyRepository defines persistence for company profiles.
type CompanyRepository interface {
	// Save upserts a profile. Updating a profile whose stored owner differs
	// from company.OwnerID returns ErrForbidden and changes nothing.
	Save(ctx context.Context, company *Company) error
	Get(ctx context.Context, id string) (*Company, error)
}

// SavedJobRepository defines persistence for saved (bookmarked) jobs.
type SavedJobRepository interface {
	// Find returns the saved record for (jobID, userID), ErrSavedNotFound
	// when none exists or ErrDuplicateSaved when several do.
	Find(ctx context.Context, jobID, userID string) (*SavedEntry, error)
	Insert(ctx context.Context, entry *SavedEntry) error
	Delete(ctx context.Context, id string) error
	// ListByUser returns a user's saved entries with jobs joined, newest first.
	ListByUser(ctx context.Context, userID string) ([]*SavedEntry, error)
}

// ApplicationRepository defines persistence for job applications.
type ApplicationRepository interface {
	// Create inserts an application, returning ErrAlreadyApplied on a
	// duplicate (job, user) pair.
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, id string) (*Application, error)
	ListByJob(ctx context.Context, jobID string) ([]*Application, error)
	ListByUser(ctx context.Context, userID string) ([]*Application, error)
	UpdateStatus(ctx context.Context, id string, status ApplicationStatus) (*Application, error)
}
