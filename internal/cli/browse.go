package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"jobboard/internal/browse"
	"jobboard/internal/config"
	"jobboard/internal/domain"
	"jobboard/internal/saved"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type browseFlags struct {
	search       string
	locations    []string
	types        []string
	level        string
	salaryMin    int
	salaryMax    int
	remote       bool
	remoteSet    bool
	postedWithin string
	sort         string
	pages        int
	watch        bool
	user         string
}

// spec converts the flags into a validated filter and sort key. Salary
// bounds of zero or less are treated as unset; the remote filter applies only
// when --remote was given, so --remote=false keeps on-site jobs.
func (f *browseFlags) spec() (domain.FilterSpecification, browse.SortKey, error) {
	spec := domain.FilterSpecification{
		Search:          strings.TrimSpace(f.search),
		Locations:       f.locations,
		ExperienceLevel: domain.ExperienceLevel(f.level),
		PostedWithin:    domain.RecencyBucket(f.postedWithin),
	}
	for _, t := range f.types {
		spec.EmploymentTypes = append(spec.EmploymentTypes, domain.EmploymentType(t))
	}
	if f.remoteSet {
		v := f.remote
		spec.RemoteWork = &v
	}
	if f.salaryMin > 0 {
		v := f.salaryMin
		spec.SalaryMin = &v
	}
	if f.salaryMax > 0 {
		v := f.salaryMax
		spec.SalaryMax = &v
	}
	if err := spec.Validate(); err != nil {
		return spec, "", err
	}
	key, err := browse.ParseSortKey(f.sort)
	if err != nil {
		return spec, "", err
	}
	return spec, key, nil
}

func newBrowseCommand() *cobra.Command {
	var flags browseFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List job postings in the terminal",
		Long:  "List job postings matching the given filters. With --watch the list is re-rendered whenever postings change.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.remoteSet = cmd.Flags().Changed("remote")
			spec, key, err := flags.spec()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runBrowse(cmd.Context(), cfg, cmd.OutOrStdout(), &flags, spec, key)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.search, "search", "s", "", "match title or description")
	fs.StringSliceVarP(&flags.locations, "location", "l", nil, "location substring (repeatable, any may match)")
	fs.StringSliceVarP(&flags.types, "type", "t", nil, "employment type: full_time, part_time, contract, internship, temporary")
	fs.StringVar(&flags.level, "level", "", "experience level: entry, mid, senior, lead, executive")
	fs.IntVar(&flags.salaryMin, "salary-min", 0, "lowest acceptable salary")
	fs.IntVar(&flags.salaryMax, "salary-max", 0, "highest acceptable salary")
	fs.BoolVar(&flags.remote, "remote", false, "remote jobs only; --remote=false for on-site only")
	fs.StringVar(&flags.postedWithin, "posted-within", "", "posting recency: 1d, 3d, 7d, 30d")
	fs.StringVar(&flags.sort, "sort", string(browse.SortRelevance), "sort order: relevance, date, salary")
	fs.IntVarP(&flags.pages, "pages", "p", 1, "number of pages to show")
	fs.BoolVarP(&flags.watch, "watch", "w", false, "re-render when postings change")
	fs.StringVar(&flags.user, "user", "", "mark jobs saved by this user")
	return cmd
}

func runBrowse(ctx context.Context, cfg *config.Config, out io.Writer, flags *browseFlags, spec domain.FilterSpecification, key browse.SortKey) error {
	logger := newLogger(os.Stderr, cfg)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, uuid.NewString(), logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	mgr := saved.NewManager(rt.gateway, rt.cache, flags.user, logger)
	if err := mgr.Load(ctx); err != nil {
		logger.Warn("saved jobs unavailable", "error", err)
	}

	var (
		live    atomic.Bool
		writeMu sync.Mutex
	)
	render := func(v browse.View) {
		writeMu.Lock()
		defer writeMu.Unlock()
		renderView(out, v, mgr.IsSaved, time.Now())
	}

	b := browse.NewBrowser(rt.gateway, logger, cfg.RefreshDebounce)
	b.OnUpdate(func(v browse.View) {
		if live.Load() && !v.Loading {
			render(v)
		}
	})
	if err := b.Start(ctx, spec, key); err != nil {
		return err
	}
	defer b.Close()

	for i := 1; i < flags.pages; i++ {
		b.LoadMore()
	}
	view := b.View()
	render(view)
	if !flags.watch {
		if view.Err != "" {
			return fmt.Errorf("failed to load jobs: %s", view.Err)
		}
		return nil
	}

	live.Store(true)
	<-ctx.Done()
	return nil
}

// renderView prints one page of results as a table.
func renderView(out io.Writer, v browse.View, isSaved func(string) bool, now time.Time) {
	if v.Err != "" {
		fmt.Fprintf(out, "error: %s\n", v.Err)
	}
	fmt.Fprintf(out, "Showing %d of %d jobs (sort: %s)\n", len(v.Jobs), v.Total, v.Sort)
	if len(v.Jobs) == 0 {
		fmt.Fprintln(out, "No jobs match the current filters.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tTITLE\tCOMPANY\tLOCATION\tTYPE\tSALARY\tPOSTED\tID")
	for _, j := range v.Jobs {
		mark := " "
		if isSaved != nil && isSaved(j.ID) {
			mark = "*"
		}
		title := j.Title
		if j.Featured {
			title += " [featured]"
		}
		company := j.CompanyID
		if j.Company != nil {
			company = j.Company.Name
		}
		location := j.Location
		if j.RemoteWork {
			location += " (remote)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, title, company, location, j.EmploymentType, salaryRange(j), age(now.Sub(j.PostedAt)), j.ID)
	}
	_ = tw.Flush()

	if v.HasMore {
		fmt.Fprintf(out, "More results available: use --pages %d\n", v.Pages+1)
	}
}

func salaryRange(j domain.Job) string {
	switch {
	case j.SalaryMin != nil && j.SalaryMax != nil:
		return strconv.Itoa(*j.SalaryMin) + "-" + strconv.Itoa(*j.SalaryMax)
	case j.SalaryMax != nil:
		return "up to " + strconv.Itoa(*j.SalaryMax)
	case j.SalaryMin != nil:
		return "from " + strconv.Itoa(*j.SalaryMin)
	}
	return "-"
}

func age(d time.Duration) string {
	switch {
	case d < time.Hour:
		return "just now"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	}
	return strconv.Itoa(int(d.Hours()/24)) + "d ago"
}
