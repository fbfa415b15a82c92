package domain

import (
	"fmt"
	"strings"
	"time"
)

// RecencyBucket is a coarse posting-age filter.
type RecencyBucket string

const (
	RecencyAny   RecencyBucket = ""
	RecencyDay   RecencyBucket = "1d"
	RecencyDays3 RecencyBucket = "3d"
	RecencyWeek  RecencyBucket = "7d"
	RecencyMonth RecencyBucket = "30d"
)

// Days returns the bucket width in days, or 0 for RecencyAny.
func (b RecencyBucket) Days() int {
	switch b {
	case RecencyDay:
		return 1
	case RecencyDays3:
		return 3
	case RecencyWeek:
		return 7
	case RecencyMonth:
		return 30
	}
	return 0
}

func (b RecencyBucket) Valid() bool {
	return b == RecencyAny || b.Days() > 0
}

// FilterSpecification bundles every active search criterion. A new value is
// built on every input change; it is never mutated once handed to a query.
type FilterSpecification struct {
	Search          string           `json:"search,omitempty"`
	Locations       []string         `json:"locations,omitempty"`
	EmploymentTypes []EmploymentType `json:"employment_types,omitempty"`
	ExperienceLevel ExperienceLevel  `json:"experience_level,omitempty"`
	SalaryMin       *int             `json:"salary_min,omitempty"`
	SalaryMax       *int             `json:"salary_max,omitempty"`
	// RemoteWork, when set, keeps only jobs whose remote flag equals it.
	RemoteWork      *bool            `json:"remote_work,omitempty"`
	PostedWithin    RecencyBucket    `json:"posted_within,omitempty"`
}

// Validate checks enumerated fields and salary bounds.
func (f FilterSpecification) Validate() error {
	for _, t := range f.EmploymentTypes {
		if !t.Valid() {
			return &ValidationError{Msg: fmt.Sprintf("invalid employment type: %q", t)}
		}
	}
	if f.ExperienceLevel != "" && !f.ExperienceLevel.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid experience level: %q", f.ExperienceLevel)}
	}
	if !f.PostedWithin.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid posting recency: %q", f.PostedWithin)}
	}
	if f.SalaryMin != nil && *f.SalaryMin < 0 || f.SalaryMax != nil && *f.SalaryMax < 0 {
		return &ValidationError{Msg: "salary bounds cannot be negative"}
	}
	if f.SalaryMin != nil && f.SalaryMax != nil && *f.SalaryMin > *f.SalaryMax {
		return &ValidationError{Msg: "minimum salary cannot exceed maximum salary"}
	}
	return nil
}

// Cutoff returns the earliest posting time admitted by the recency bucket.
// ok is false when no recency filter is active.
func (f FilterSpecification) Cutoff(now time.Time) (cutoff time.Time, ok bool) {
	days := f.PostedWithin.Days()
	if days == 0 {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -days), true
}

// Matches evaluates the filter against a single job. Categories combine
// with AND; values inside the location and employment type lists with OR.
// Only active jobs ever match.
func (f FilterSpecification) Matches(job *Job, now time.Time) bool {
	if job.Status != JobStatusActive {
		return false
	}

	if term := strings.TrimSpace(f.Search); term != "" {
		if !containsFold(job.Title, term) && !containsFold(job.Description, term) {
			return false
		}
	}

	if len(f.Locations) > 0 {
		found := false
		for _, loc := range f.Locations {
			if containsFold(job.Location, loc) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.EmploymentTypes) > 0 {
		found := false
		for _, t := range f.EmploymentTypes {
			if job.EmploymentType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.ExperienceLevel != "" && job.ExperienceLevel != f.ExperienceLevel {
		return false
	}

	if f.RemoteWork != nil && job.RemoteWork != *f.RemoteWork {
		return false
	}

	// Range overlap; a missing bound on the job never overlaps.
	if f.SalaryMin != nil && (job.SalaryMax == nil || *job.SalaryMax < *f.SalaryMin) {
		return false
	}
	if f.SalaryMax != nil && (job.SalaryMin == nil || *job.SalaryMin > *f.SalaryMax) {
		return false
	}

	if cutoff, ok := f.Cutoff(now); ok && job.PostedAt.Before(cutoff) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}
