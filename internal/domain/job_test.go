package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr string
	}{
		{name: "valid job"},
		{name: "missing title", mutate: func(j *Job) { j.Title = "  " }, wantErr: "job title cannot be empty"},
		{name: "missing company", mutate: func(j *Job) { j.CompanyID = "" }, wantErr: "job company_id cannot be empty"},
		{name: "bad employment type", mutate: func(j *Job) { j.EmploymentType = "gig" }, wantErr: `invalid employment type: "gig"`},
		{name: "bad experience level", mutate: func(j *Job) { j.ExperienceLevel = "" }, wantErr: `invalid experience level: ""`},
		{name: "inverted salary", mutate: func(j *Job) { j.SalaryMin = intPtr(100); j.SalaryMax = intPtr(10) }, wantErr: "salary_min cannot exceed salary_max"},
		{name: "bad status", mutate: func(j *Job) { j.Status = "archived" }, wantErr: `invalid job status: "archived"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newTestJob("job-1")
			if tt.mutate != nil {
				tt.mutate(job)
			}
			err := job.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestJob_ValidateDefaultsStatus(t *testing.T) {
	job := newTestJob("job-1")
	job.Status = ""
	assert.NoError(t, job.Validate())
	assert.Equal(t, JobStatusActive, job.Status)
}

func TestJob_SalaryMaxOrZero(t *testing.T) {
	job := newTestJob("job-1")
	assert.Equal(t, 90000, job.SalaryMaxOrZero())
	job.SalaryMax = nil
	assert.Equal(t, 0, job.SalaryMaxOrZero())
}

func TestCompany_Validate(t *testing.T) {
	assert.NoError(t, (&Company{Name: "Acme", Size: CompanySizeSmall}).Validate())
	assert.NoError(t, (&Company{Name: "Acme"}).Validate())
	assert.Error(t, (&Company{Name: ""}).Validate())
	assert.Error(t, (&Company{Name: "Acme", Size: "huge"}).Validate())
}
