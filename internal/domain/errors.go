package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrCompanyNotFound is returned when a company is not found.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrApplicationNotFound is returned when an application is not found.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrSavedNotFound reports that no saved record exists for a (job, user)
	// pair. Callers checking existence treat it as control flow.
	ErrSavedNotFound = errors.New("saved job not found")
	// ErrDuplicateSaved is returned when more than one saved record matches a
	// single (job, user) pair.
	ErrDuplicateSaved = errors.New("multiple saved records for job and user")
	// ErrAlreadyApplied is returned when a user applies twice to the same job.
	ErrAlreadyApplied = errors.New("already applied to this job")
	// ErrAuthRequired is returned when an anonymous caller attempts an
	// operation that needs a signed-in user.
	ErrAuthRequired = errors.New("sign in required")
	// ErrForbidden is returned when a signed-in user acts on a company, or
	// on the postings and applications of a company, they do not own.
	ErrForbidden = errors.New("only the company owner can do this")
	// ErrStoreUnavailable marks errors caused by the job store being unreachable.
	ErrStoreUnavailable = errors.New("job store unavailable")
)

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
