// Package browse derives the displayed job listing from the canonical job
// set: filter, sort, then reveal pages of PageSize as the user scrolls.
package browse

import (
	"fmt"
	"slices"
	"time"

	"jobboard/internal/domain"
)

// PageSize is the number of jobs revealed per page.
const PageSize = 6

// SortKey selects the listing order.
type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortDate      SortKey = "date"
	SortSalary    SortKey = "salary"
)

// ParseSortKey converts a raw value to a SortKey; empty means relevance.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortDate, SortSalary:
		return k, nil
	}
	return "", &domain.ValidationError{Msg: fmt.Sprintf("unknown sort key %q", s)}
}

// Filter returns the jobs matching spec, preserving input order.
func Filter(jobs []domain.Job, spec domain.FilterSpecification, now time.Time) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for i := range jobs {
		if spec.Matches(&jobs[i], now) {
			out = append(out, jobs[i])
		}
	}
	return out
}

// Sort returns a sorted copy of jobs; the input is left untouched.
//
//   - date: newest posting first
//   - salary: highest salary_max first, missing treated as 0
//   - relevance: featured first, then newest posting first
func Sort(jobs []domain.Job, key SortKey) []domain.Job {
	out := slices.Clone(jobs)
	switch key {
	case SortDate:
		slices.SortStableFunc(out, byPostedDesc)
	case SortSalary:
		slices.SortStableFunc(out, func(a, b domain.Job) int {
			return b.SalaryMaxOrZero() - a.SalaryMaxOrZero()
		})
	default:
		slices.SortStableFunc(out, func(a, b domain.Job) int {
			if a.Featured != b.Featured {
				if a.Featured {
					return -1
				}
				return 1
			}
			return byPostedDesc(a, b)
		})
	}
	return out
}

func byPostedDesc(a, b domain.Job) int {
	return b.PostedAt.Compare(a.PostedAt)
}

// Paginate returns the first pages*PageSize jobs.
func Paginate(jobs []domain.Job, pages int) []domain.Job {
	if pages < 1 {
		pages = 1
	}
	n := min(pages*PageSize, len(jobs))
	return jobs[:n:n]
}

// HasMore reports whether revealing pages leaves jobs undisplayed.
func HasMore(total, pages int) bool {
	return pages*PageSize < total
}

// Page is the derived, displayable view of a job set.
type Page struct {
	Jobs    []domain.Job `json:"jobs"`
	Total   int          `json:"total"`
	Pages   int          `json:"pages"`
	HasMore bool         `json:"has_more"`
	Sort    SortKey      `json:"sort"`
}

// Derive sorts the already filtered set and reveals the first pages.
func Derive(filtered []domain.Job, key SortKey, pages int) Page {
	if pages < 1 {
		pages = 1
	}
	sorted := Sort(filtered, key)
	return Page{
		Jobs:    Paginate(sorted, pages),
		Total:   len(sorted),
		Pages:   pages,
		HasMore: HasMore(len(sorted), pages),
		Sort:    key,
	}
}
