package domain

import (
	"fmt"
	"time"
)

// ApplicationStatus tracks a candidate's application through review.
//
//	submitted ──► reviewing ──► interview ──► offer ──► hired
//	    │             │              │           │
//	    └─────────────┴──────────────┴───────────┴──► rejected | withdrawn
//
// hired, rejected and withdrawn are terminal.
type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationReviewing ApplicationStatus = "reviewing"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffer     ApplicationStatus = "offer"
	ApplicationHired     ApplicationStatus = "hired"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationSubmitted: {ApplicationReviewing, ApplicationRejected, ApplicationWithdrawn},
	ApplicationReviewing: {ApplicationInterview, ApplicationRejected, ApplicationWithdrawn},
	ApplicationInterview: {ApplicationOffer, ApplicationRejected, ApplicationWithdrawn},
	ApplicationOffer:     {ApplicationHired, ApplicationRejected, ApplicationWithdrawn},
}

// ParseApplicationStatus converts a raw string to an ApplicationStatus.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case ApplicationSubmitted, ApplicationReviewing, ApplicationInterview, ApplicationOffer,
		ApplicationHired, ApplicationRejected, ApplicationWithdrawn:
		return st, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown application status %q", s)}
}

// IsApplicationTransitionAllowed reports whether from → to is permitted.
func IsApplicationTransitionAllowed(from, to ApplicationStatus) bool {
	for _, s := range applicationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Application is a candidate's submission for a job.
type Application struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	UserID      string            `json:"user_id"`
	CoverLetter string            `json:"cover_letter,omitempty"`
	ResumeURL   string            `json:"resume_url,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate checks if the application is complete.
func (a *Application) Validate() error {
	if a.JobID == "" {
		return &ValidationError{Msg: "application job_id cannot be empty"}
	}
	if a.UserID == "" {
		return ErrAuthRequired
	}
	if a.ResumeURL == "" && a.CoverLetter == "" {
		return &ValidationError{Msg: "application needs a resume_url or a cover_letter"}
	}
	if a.Status == "" {
		a.Status = ApplicationSubmitted
	}
	return nil
}
