package postgres

import (
	"strconv"
	"strings"
	"time"

	"jobboard/internal/domain"
)

const jobColumns = `j.id::text, j.title, j.description, j.location, j.employment_type, j.experience_level,
	j.salary_min, j.salary_max, j.remote_work, j.posted_at, j.expires_at, j.status, j.featured,
	j.company_id::text, j.views_count, j.created_at, j.updated_at`

// queryBuilder accumulates a WHERE clause with positional parameters.
type queryBuilder struct {
	sb   strings.Builder
	args []any
}

func (q *queryBuilder) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// buildJobQuery translates spec into a parameterized SELECT over active jobs,
// newest posting first.
func buildJobQuery(spec domain.FilterSpecification, now time.Time) (string, []any) {
	q := &queryBuilder{}
	q.sb.WriteString("SELECT ")
	q.sb.WriteString(jobColumns)
	q.sb.WriteString(" FROM jobs j WHERE j.status = ")
	q.sb.WriteString(q.arg(string(domain.JobStatusActive)))

	if term := strings.TrimSpace(spec.Search); term != "" {
		p := q.arg("%" + escapeLike(term) + "%")
		q.sb.WriteString(" AND (j.title ILIKE " + p + " OR j.description ILIKE " + p + ")")
	}

	if len(spec.Locations) > 0 {
		conds := make([]string, 0, len(spec.Locations))
		for _, loc := range spec.Locations {
			conds = append(conds, "j.location ILIKE "+q.arg("%"+escapeLike(strings.TrimSpace(loc))+"%"))
		}
		q.sb.WriteString(" AND (" + strings.Join(conds, " OR ") + ")")
	}

	if len(spec.EmploymentTypes) > 0 {
		types := make([]string, 0, len(spec.EmploymentTypes))
		for _, t := range spec.EmploymentTypes {
			types = append(types, string(t))
		}
		q.sb.WriteString(" AND j.employment_type = ANY(" + q.arg(types) + ")")
	}

	if spec.ExperienceLevel != "" {
		q.sb.WriteString(" AND j.experience_level = " + q.arg(string(spec.ExperienceLevel)))
	}

	if spec.RemoteWork != nil {
		q.sb.WriteString(" AND j.remote_work = " + q.arg(*spec.RemoteWork))
	}

	// NULL bounds compare as unknown, so jobs without salary never overlap.
	if spec.SalaryMin != nil {
		q.sb.WriteString(" AND j.salary_max >= " + q.arg(*spec.SalaryMin))
	}
	if spec.SalaryMax != nil {
		q.sb.WriteString(" AND j.salary_min <= " + q.arg(*spec.SalaryMax))
	}

	if cutoff, ok := spec.Cutoff(now); ok {
		q.sb.WriteString(" AND j.posted_at >= " + q.arg(cutoff))
	}

	q.sb.WriteString(" ORDER BY j.posted_at DESC")
	return q.sb.String(), q.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
