package http

import (
	"errors"
	"net/http"
	"strings"

	"jobboard/internal/browse"
	"jobboard/internal/domain"

	"github.com/go-playground/validator/v10"
)

// ListJobsQuery is the query string accepted by GET /api/v1/jobs.
// Repeated keys and comma separated values are both accepted for lists.
type ListJobsQuery struct {
	Search          string   `form:"search" validate:"max=200"`
	Locations       []string `form:"location" validate:"dive,max=100"`
	EmploymentTypes []string `form:"type" validate:"dive,employment_type"`
	ExperienceLevel string   `form:"level" validate:"omitempty,experience_level"`
	SalaryMin       *int     `form:"salary_min" validate:"omitempty,gte=0"`
	SalaryMax       *int     `form:"salary_max" validate:"omitempty,gte=0"`
	Remote          *bool    `form:"remote"`
	PostedWithin    string   `form:"posted_within" validate:"omitempty,recency"`
	Sort            string   `form:"sort" validate:"omitempty,sort_key"`
	Pages           int      `form:"pages" validate:"omitempty,gte=1,lte=100"`
}

// normalize splits comma separated list values so each one is validated.
func (q *ListJobsQuery) normalize() {
	q.Locations = splitValues(q.Locations)
	q.EmploymentTypes = splitValues(q.EmploymentTypes)
}

// ToSpec converts the query into a filter specification.
func (q *ListJobsQuery) ToSpec() domain.FilterSpecification {
	spec := domain.FilterSpecification{
		Search:          strings.TrimSpace(q.Search),
		Locations:       q.Locations,
		ExperienceLevel: domain.ExperienceLevel(q.ExperienceLevel),
		SalaryMin:       q.SalaryMin,
		SalaryMax:       q.SalaryMax,
		RemoteWork:      q.Remote,
		PostedWithin:    domain.RecencyBucket(q.PostedWithin),
	}
	for _, t := range q.EmploymentTypes {
		spec.EmploymentTypes = append(spec.EmploymentTypes, domain.EmploymentType(t))
	}
	return spec
}

func splitValues(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// CreateJobRequest is the body of POST /api/v1/jobs.
type CreateJobRequest struct {
	Title           string `json:"title" validate:"required,min=1,max=200"`
	Description     string `json:"description" validate:"max=20000"`
	Location        string `json:"location" validate:"max=200"`
	EmploymentType  string `json:"employment_type" validate:"required,employment_type"`
	ExperienceLevel string `json:"experience_level" validate:"required,experience_level"`
	SalaryMin       *int   `json:"salary_min" validate:"omitempty,gte=0"`
	SalaryMax       *int   `json:"salary_max" validate:"omitempty,gte=0"`
	RemoteWork      bool   `json:"remote_work"`
	ExpiresInDays   int    `json:"expires_in_days" validate:"omitempty,gte=1,lte=365"`
	Featured        bool   `json:"featured"`
	CompanyID       string `json:"company_id" validate:"required"`
}

// ToDomainJob converts the request to a domain.Job.
func (r *CreateJobRequest) ToDomainJob() *domain.Job {
	return &domain.Job{
		Title:           r.Title,
		Description:     r.Description,
		Location:        r.Location,
		EmploymentType:  domain.EmploymentType(r.EmploymentType),
		ExperienceLevel: domain.ExperienceLevel(r.ExperienceLevel),
		SalaryMin:       r.SalaryMin,
		SalaryMax:       r.SalaryMax,
		RemoteWork:      r.RemoteWork,
		Featured:        r.Featured,
		CompanyID:       r.CompanyID,
		Status:          domain.JobStatusActive,
	}
}

// UpdateJobStatusRequest is the body of PATCH /api/v1/jobs/:id/status.
type UpdateJobStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// CompanyRequest is the body of POST /api/v1/companies.
type CompanyRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=200"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
	Industry    string `json:"industry" validate:"max=100"`
	Size        string `json:"size" validate:"omitempty,company_size"`
	Website     string `json:"website" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=5000"`
}

func (r *CompanyRequest) ToDomainCompany(ownerID string) *domain.Company {
	return &domain.Company{
		ID:          r.ID,
		Name:        r.Name,
		LogoURL:     r.LogoURL,
		Industry:    r.Industry,
		Size:        domain.CompanySize(r.Size),
		Website:     r.Website,
		Description: r.Description,
		OwnerID:     ownerID,
	}
}

// ApplyRequest is the body of POST /api/v1/jobs/:id/applications.
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter" validate:"max=10000"`
	ResumeURL   string `json:"resume_url" validate:"omitempty,url"`
}

// MoveApplicationRequest is the body of PATCH /api/v1/applications/:id/status.
type MoveApplicationRequest struct {
	Status string `json:"status" validate:"required,application_status"`
}

// newValidator registers the domain enumerations as validation tags.
func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("employment_type", func(fl validator.FieldLevel) bool {
		return domain.EmploymentType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("experience_level", func(fl validator.FieldLevel) bool {
		return domain.ExperienceLevel(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("recency", func(fl validator.FieldLevel) bool {
		return domain.RecencyBucket(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("sort_key", func(fl validator.FieldLevel) bool {
		_, err := browse.ParseSortKey(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("company_size", func(fl validator.FieldLevel) bool {
		return domain.CompanySize(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("application_status", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseApplicationStatus(fl.Field().String())
		return err == nil
	})
	return validate
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, "field '"+fe.Field()+"' failed on the '"+fe.Tag()+"' tag")
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// statusFor maps a failed result kind to an HTTP status code.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindConnectivity:
		return http.StatusServiceUnavailable
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
