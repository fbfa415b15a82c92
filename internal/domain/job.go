package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmploymentType is the contract form a job is offered under.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
	EmploymentTemporary  EmploymentType = "temporary"
)

// Valid reports whether t is one of the known employment types.
func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentInternship, EmploymentTemporary:
		return true
	}
	return false
}

// ExperienceLevel is the seniority a job targets.
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

func (l ExperienceLevel) Valid() bool {
	switch l {
	case ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceLead, ExperienceExecutive:
		return true
	}
	return false
}

// JobStatus defines whether a job is visible to job seekers.
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusInactive JobStatus = "inactive"
)

func (s JobStatus) Valid() bool {
	return s == JobStatusActive || s == JobStatusInactive
}

// Job is a single posting on the board.
type Job struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	EmploymentType  EmploymentType  `json:"employment_type"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	SalaryMin       *int            `json:"salary_min,omitempty"`
	SalaryMax       *int            `json:"salary_max,omitempty"`
	RemoteWork      bool            `json:"remote_work"`
	PostedAt        time.Time       `json:"posted_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	Status          JobStatus       `json:"status"`
	Featured        bool            `json:"featured"`
	CompanyID       string          `json:"company_id"`
	Company         *Company        `json:"company,omitempty"` // Joined on detail reads
	ViewsCount      int             `json:"views_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SalaryMaxOrZero returns the upper salary bound, treating a missing value as 0.
func (j *Job) SalaryMaxOrZero() int {
	if j.SalaryMax == nil {
		return 0
	}
	return *j.SalaryMax
}

// Validate checks if the job posting is valid.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return &ValidationError{Msg: "job title cannot be empty"}
	}
	if j.CompanyID == "" {
		return &ValidationError{Msg: "job company_id cannot be empty"}
	}
	if !j.EmploymentType.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid employment type: %q", j.EmploymentType)}
	}
	if !j.ExperienceLevel.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid experience level: %q", j.ExperienceLevel)}
	}
	if j.SalaryMin != nil && *j.SalaryMin < 0 || j.SalaryMax != nil && *j.SalaryMax < 0 {
		return &ValidationError{Msg: "salary bounds cannot be negative"}
	}
	if j.SalaryMin != nil && j.SalaryMax != nil && *j.SalaryMin > *j.SalaryMax {
		return &ValidationError{Msg: "salary_min cannot exceed salary_max"}
	}

	if j.Status == "" {
		j.Status = JobStatusActive
	}
	if !j.Status.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("invalid job status: %q", j.Status)}
	}
	return nil
}
