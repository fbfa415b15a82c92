// Package memory provides in-process implementations of the job board
// repositories and change feed. It backs the "memory" store driver and the
// test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"jobboard/internal/domain"

	"github.com/google/uuid"
)

// Store holds every table in maps guarded by a single mutex.
type Store struct {
	mu           sync.RWMutex
	jobs         map[string]*domain.Job
	companies    map[string]*domain.Company
	saved        map[string]*domain.SavedEntry
	applications map[string]*domain.Application
	now          func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		jobs:         make(map[string]*domain.Job),
		companies:    make(map[string]*domain.Company),
		saved:        make(map[string]*domain.SavedEntry),
		applications: make(map[string]*domain.Application),
		now:          time.Now,
	}
}

// Jobs returns the store as a domain.JobRepository.
func (s *Store) Jobs() domain.JobRepository { return (*jobRepo)(s) }

// Companies returns the store as a domain.CompanyRepository.
func (s *Store) Companies() domain.CompanyRepository { return (*companyRepo)(s) }

// SavedJobs returns the store as a domain.SavedJobRepository.
func (s *Store) SavedJobs() domain.SavedJobRepository { return (*savedRepo)(s) }

// Applications returns the store as a domain.ApplicationRepository.
func (s *Store) Applications() domain.ApplicationRepository { return (*applicationRepo)(s) }

func copyJob(j *domain.Job) *domain.Job {
	c := *j
	if j.Company != nil {
		company := *j.Company
		c.Company = &company
	}
	return &c
}

type jobRepo Store

func (r *jobRepo) List(_ context.Context, filter domain.FilterSpecification, now time.Time) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if filter.Matches(j, now) {
			jobs = append(jobs, copyJob(j))
		}
	}
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].PostedAt.After(jobs[b].PostedAt) })
	return jobs, nil
}

func (r *jobRepo) ListByCompany(_ context.Context, companyID string) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*domain.Job, 0)
	for _, j := range r.jobs {
		if j.CompanyID == companyID {
			jobs = append(jobs, copyJob(j))
		}
	}
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].PostedAt.After(jobs[b].PostedAt) })
	return jobs, nil
}

func (r *jobRepo) Get(_ context.Context, id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	job := copyJob(j)
	if c, ok := r.companies[j.CompanyID]; ok {
		company := *c
		job.Company = &company
	}
	return job, nil
}

func (r *jobRepo) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.companies[job.CompanyID]; !ok {
		return domain.ErrCompanyNotFound
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := r.now()
	if job.PostedAt.IsZero() {
		job.PostedAt = now
	}
	job.CreatedAt, job.UpdatedAt = now, now
	stored := copyJob(job)
	stored.Company = nil
	r.jobs[job.ID] = stored
	return nil
}

func (r *jobRepo) UpdateStatus(_ context.Context, id string, status domain.JobStatus) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	j.Status = status
	j.UpdatedAt = r.now()
	return copyJob(j), nil
}

func (r *jobRepo) IncrementViews(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	j.ViewsCount++
	return nil
}

func (r *jobRepo) DeactivateExpired(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, j := range r.jobs {
		if j.Status == domain.JobStatusActive && j.ExpiresAt != nil && j.ExpiresAt.Before(now) {
			j.Status = domain.JobStatusInactive
			j.UpdatedAt = now
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type companyRepo Store

func (r *companyRepo) Save(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	if existing, ok := r.companies[company.ID]; ok {
		if existing.OwnerID != company.OwnerID {
			return domain.ErrForbidden
		}
		company.CreatedAt = existing.CreatedAt
	} else {
		company.CreatedAt = now
	}
	company.UpdatedAt = now
	c := *company
	r.companies[company.ID] = &c
	return nil
}

func (r *companyRepo) Get(_ context.Context, id string) (*domain.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	company := *c
	return &company, nil
}

type savedRepo Store

func (r *savedRepo) Find(_ context.Context, jobID, userID string) (*domain.SavedEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.SavedEntry
	for _, e := range r.saved {
		if e.JobID == jobID && e.UserID == userID {
			if found != nil {
				return nil, domain.ErrDuplicateSaved
			}
			found = e
		}
	}
	if found == nil {
		return nil, domain.ErrSavedNotFound
	}
	entry := *found
	return &entry, nil
}

func (r *savedRepo) Insert(_ context.Context, entry *domain.SavedEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[entry.JobID]; !ok {
		return domain.ErrJobNotFound
	}
	for _, e := range r.saved {
		if e.JobID == entry.JobID && e.UserID == entry.UserID {
			// Unique (job_id, user_id): same outcome as ON CONFLICT DO NOTHING.
			*entry = *e
			return nil
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = r.now()
	e := *entry
	e.Job = nil
	r.saved[entry.ID] = &e
	return nil
}

func (r *savedRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.saved, id)
	return nil
}

func (r *savedRepo) ListByUser(_ context.Context, userID string) ([]*domain.SavedEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*domain.SavedEntry, 0)
	for _, e := range r.saved {
		if e.UserID != userID {
			continue
		}
		entry := *e
		if j, ok := r.jobs[e.JobID]; ok {
			entry.Job = copyJob(j)
		}
		entries = append(entries, &entry)
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].CreatedAt.After(entries[b].CreatedAt) })
	return entries, nil
}

type applicationRepo Store

func (r *applicationRepo) Create(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.applications {
		if a.JobID == app.JobID && a.UserID == app.UserID {
			return domain.ErrAlreadyApplied
		}
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := r.now()
	app.CreatedAt, app.UpdatedAt = now, now
	a := *app
	r.applications[app.ID] = &a
	return nil
}

func (r *applicationRepo) Get(_ context.Context, id string) (*domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.applications[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	app := *a
	return &app, nil
}

func (r *applicationRepo) ListByJob(_ context.Context, jobID string) ([]*domain.Application, error) {
	return r.list(func(a *domain.Application) bool { return a.JobID == jobID }), nil
}

func (r *applicationRepo) ListByUser(_ context.Context, userID string) ([]*domain.Application, error) {
	return r.list(func(a *domain.Application) bool { return a.UserID == userID }), nil
}

func (r *applicationRepo) list(keep func(*domain.Application) bool) []*domain.Application {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]*domain.Application, 0)
	for _, a := range r.applications {
		if keep(a) {
			app := *a
			apps = append(apps, &app)
		}
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].CreatedAt.After(apps[j].CreatedAt) })
	return apps
}

func (r *applicationRepo) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.applications[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	a.Status = status
	a.UpdatedAt = r.now()
	app := *a
	return &app, nil
}

// SetClock replaces the store clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed inserts companies and jobs verbatim, keeping their IDs and timestamps.
func (s *Store) Seed(companies []*domain.Company, jobs []*domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range companies {
		company := *c
		s.companies[c.ID] = &company
	}
	for _, j := range jobs {
		job := copyJob(j)
		job.Company = nil
		s.jobs[j.ID] = job
	}
}

// SeedSaved inserts a saved record without the uniqueness check.
func (s *Store) SeedSaved(entry *domain.SavedEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := *entry
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.saved[e.ID] = &e
}
