package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"jobboard/internal/domain"
	"jobboard/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// recruiter owns the seeded "acme" company.
const recruiter = "recruiter-1"

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testJob(id string, hoursAgo int) *domain.Job {
	return &domain.Job{
		ID:              id,
		Title:           "Engineer " + id,
		Description:     "Build things",
		Location:        "Berlin",
		EmploymentType:  domain.EmploymentFullTime,
		ExperienceLevel: domain.ExperienceMid,
		SalaryMin:       intPtr(50000),
		SalaryMax:       intPtr(80000),
		PostedAt:        testNow.Add(-time.Duration(hoursAgo) * time.Hour),
		Status:          domain.JobStatusActive,
		CompanyID:       "acme",
	}
}

type gatewayFixture struct {
	store   *memory.Store
	feed    *memory.ChangeFeed
	gateway *JobGateway
}

func newGatewayFixture(t *testing.T, jobs ...*domain.Job) *gatewayFixture {
	t.Helper()
	store := memory.NewStore()
	store.SetClock(func() time.Time { return testNow })
	store.Seed([]*domain.Company{{ID: "acme", Name: "Acme", OwnerID: recruiter}}, jobs)
	feed := memory.NewChangeFeed()
	gw := NewJobGateway(Stores{
		Jobs:         store.Jobs(),
		Companies:    store.Companies(),
		Saved:        store.SavedJobs(),
		Applications: store.Applications(),
	}, feed, discardLogger())
	gw.SetClock(func() time.Time { return testNow })
	return &gatewayFixture{store: store, feed: feed, gateway: gw}
}

func jobIDs(jobs []domain.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

func TestJobGateway_ListJobs(t *testing.T) {
	inactive := testJob("closed", 1)
	inactive.Status = domain.JobStatusInactive
	remote := testJob("remote", 3)
	remote.RemoteWork = true
	fx := newGatewayFixture(t, testJob("older", 10), testJob("newer", 2), inactive, remote)

	res := fx.gateway.ListJobs(context.Background(), domain.FilterSpecification{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"newer", "remote", "older"}, jobIDs(res.Data))

	res = fx.gateway.ListJobs(context.Background(), domain.FilterSpecification{RemoteWork: boolPtr(true)})
	require.True(t, res.Success)
	assert.Equal(t, []string{"remote"}, jobIDs(res.Data))
}

func TestJobGateway_ListJobsRejectsInvalidSpec(t *testing.T) {
	fx := newGatewayFixture(t)
	res := fx.gateway.ListJobs(context.Background(), domain.FilterSpecification{SalaryMin: intPtr(10), SalaryMax: intPtr(5)})
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindValidation, res.Kind)
	assert.NotEmpty(t, res.Error)
}

func TestJobGateway_GetJobByID(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))

	res := fx.gateway.GetJobByID(context.Background(), "job-1")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "job-1", res.Data.ID)
	require.NotNil(t, res.Data.Company)
	assert.Equal(t, "Acme", res.Data.Company.Name)

	assert.Eventually(t, func() bool {
		j, err := fx.store.Jobs().Get(context.Background(), "job-1")
		return err == nil && j.ViewsCount == 1
	}, time.Second, 10*time.Millisecond)

	missing := fx.gateway.GetJobByID(context.Background(), "nope")
	assert.False(t, missing.Success)
	assert.Equal(t, domain.KindNotFound, missing.Kind)
	assert.Equal(t, "job not found", missing.Error)
}

type failingViewsRepo struct {
	domain.JobRepository
	calls chan struct{}
}

func (r *failingViewsRepo) IncrementViews(context.Context, string) error {
	r.calls <- struct{}{}
	return errors.New("procedure failed")
}

func TestJobGateway_GetJobByIDIgnoresViewIncrementFailure(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	repo := &failingViewsRepo{JobRepository: fx.store.Jobs(), calls: make(chan struct{}, 1)}
	fx.gateway.stores.Jobs = repo

	res := fx.gateway.GetJobByID(context.Background(), "job-1")
	assert.True(t, res.Success)

	select {
	case <-repo.calls:
	case <-time.After(time.Second):
		t.Fatal("view increment was never attempted")
	}
}

func TestJobGateway_ToggleSavedJob(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	ctx := context.Background()

	first := fx.gateway.ToggleSavedJob(ctx, "job-1", "user-1")
	require.True(t, first.Success, first.Error)
	assert.True(t, first.Data.Saved)
	_, err := fx.store.SavedJobs().Find(ctx, "job-1", "user-1")
	assert.NoError(t, err)

	second := fx.gateway.ToggleSavedJob(ctx, "job-1", "user-1")
	require.True(t, second.Success, second.Error)
	assert.False(t, second.Data.Saved)
	_, err = fx.store.SavedJobs().Find(ctx, "job-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrSavedNotFound)
}

func TestJobGateway_ToggleSavedJobAnonymous(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))

	res := fx.gateway.ToggleSavedJob(context.Background(), "job-1", "")
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindAuth, res.Kind)

	list := fx.gateway.ListSavedJobs(context.Background(), "user-1")
	require.True(t, list.Success)
	assert.Empty(t, list.Data)
}

func TestJobGateway_ToggleSavedJobDuplicateRowsFail(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	fx.store.SeedSaved(&domain.SavedEntry{ID: "s1", JobID: "job-1", UserID: "user-1"})
	fx.store.SeedSaved(&domain.SavedEntry{ID: "s2", JobID: "job-1", UserID: "user-1"})

	res := fx.gateway.ToggleSavedJob(context.Background(), "job-1", "user-1")
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindQuery, res.Kind)

	list := fx.gateway.ListSavedJobs(context.Background(), "user-1")
	require.True(t, list.Success)
	assert.Len(t, list.Data, 2, "a failed toggle must not delete either row")
}

func TestJobGateway_ToggleSavedJobUnknownJob(t *testing.T) {
	fx := newGatewayFixture(t)
	res := fx.gateway.ToggleSavedJob(context.Background(), "ghost", "user-1")
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindNotFound, res.Kind)
}

type unreachableJobs struct{ domain.JobRepository }

func (unreachableJobs) List(context.Context, domain.FilterSpecification, time.Time) ([]*domain.Job, error) {
	return nil, fmt.Errorf("list jobs: %w", domain.ErrStoreUnavailable)
}

func TestJobGateway_ConnectivityFailureMessage(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.gateway.stores.Jobs = unreachableJobs{}

	res := fx.gateway.ListJobs(context.Background(), domain.FilterSpecification{})
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindConnectivity, res.Kind)
	assert.Equal(t, ConnectivityMessage, res.Error)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err     error
		want    domain.ErrorKind
		wantMsg string
	}{
		{fmt.Errorf("dial: %w", domain.ErrStoreUnavailable), domain.KindConnectivity, ConnectivityMessage},
		{context.DeadlineExceeded, domain.KindConnectivity, ConnectivityMessage},
		{&domain.ValidationError{Msg: "bad input"}, domain.KindValidation, "bad input"},
		{domain.ErrAuthRequired, domain.KindAuth, "sign in required"},
		{domain.ErrForbidden, domain.KindForbidden, "only the company owner can do this"},
		{domain.ErrCompanyNotFound, domain.KindNotFound, "company not found"},
		{domain.ErrAlreadyApplied, domain.KindConflict, "already applied to this job"},
		{errors.New("syntax error at or near SELECT"), domain.KindQuery, "syntax error at or near SELECT"},
	}
	for _, tt := range tests {
		kind, msg := Classify(tt.err)
		assert.Equal(t, tt.want, kind, "%v", tt.err)
		assert.Equal(t, tt.wantMsg, msg, "%v", tt.err)
	}
}

func TestJobGateway_CreateAndUpdatePublishChanges(t *testing.T) {
	fx := newGatewayFixture(t)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []domain.ChangeEvent
	)
	sub, err := fx.gateway.SubscribeToJobChanges(ctx, func(ev domain.ChangeEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	job := testJob("", 0)
	created := fx.gateway.CreateJob(ctx, recruiter, job)
	require.True(t, created.Success, created.Error)
	require.NotEmpty(t, created.Data.ID)

	updated := fx.gateway.UpdateJobStatus(ctx, recruiter, created.Data.ID, domain.JobStatusInactive)
	require.True(t, updated.Success, updated.Error)
	assert.Equal(t, domain.JobStatusInactive, updated.Data.Status)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.ChangeInsert, events[0].Kind)
	assert.Equal(t, domain.ChangeUpdate, events[1].Kind)
	assert.Equal(t, created.Data.ID, events[1].JobID)
}

func TestJobGateway_CreateJobValidation(t *testing.T) {
	fx := newGatewayFixture(t)
	job := testJob("", 0)
	job.Title = ""
	res := fx.gateway.CreateJob(context.Background(), recruiter, job)
	assert.False(t, res.Success)
	assert.Equal(t, domain.KindValidation, res.Kind)
	assert.Equal(t, "job title cannot be empty", res.Error)

	bad := fx.gateway.UpdateJobStatus(context.Background(), recruiter, "x", "archived")
	assert.Equal(t, domain.KindValidation, bad.Kind)
}

func TestJobGateway_Applications(t *testing.T) {
	closed := testJob("closed", 1)
	closed.Status = domain.JobStatusInactive
	fx := newGatewayFixture(t, testJob("job-1", 1), closed)
	ctx := context.Background()

	res := fx.gateway.ApplyToJob(ctx, &domain.Application{JobID: "job-1", UserID: "u1", CoverLetter: "hi"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, domain.ApplicationSubmitted, res.Data.Status)

	dup := fx.gateway.ApplyToJob(ctx, &domain.Application{JobID: "job-1", UserID: "u1", CoverLetter: "again"})
	assert.Equal(t, domain.KindConflict, dup.Kind)

	inactive := fx.gateway.ApplyToJob(ctx, &domain.Application{JobID: "closed", UserID: "u1", CoverLetter: "hi"})
	assert.Equal(t, domain.KindValidation, inactive.Kind)

	anon := fx.gateway.ApplyToJob(ctx, &domain.Application{JobID: "job-1", CoverLetter: "hi"})
	assert.Equal(t, domain.KindAuth, anon.Kind)

	byJob := fx.gateway.ListApplications(ctx, recruiter, "job-1")
	require.True(t, byJob.Success)
	assert.Len(t, byJob.Data, 1)

	mine := fx.gateway.ListUserApplications(ctx, "u1")
	require.True(t, mine.Success)
	assert.Len(t, mine.Data, 1)

	moved := fx.gateway.MoveApplication(ctx, recruiter, res.Data.ID, domain.ApplicationReviewing)
	require.True(t, moved.Success, moved.Error)
	assert.Equal(t, domain.ApplicationReviewing, moved.Data.Status)

	skipped := fx.gateway.MoveApplication(ctx, recruiter, res.Data.ID, domain.ApplicationHired)
	assert.False(t, skipped.Success)
	assert.Equal(t, domain.KindValidation, skipped.Kind)
	assert.Equal(t, "cannot move application from reviewing to hired", skipped.Error)
}

func TestJobGateway_Companies(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	ctx := context.Background()

	saved := fx.gateway.SaveCompany(ctx, "owner-2", &domain.Company{Name: "Globex", Size: domain.CompanySizeSmall})
	require.True(t, saved.Success, saved.Error)
	require.NotEmpty(t, saved.Data.ID)
	assert.Equal(t, "owner-2", saved.Data.OwnerID)

	got := fx.gateway.GetCompany(ctx, saved.Data.ID)
	require.True(t, got.Success)
	assert.Equal(t, "Globex", got.Data.Name)

	jobs := fx.gateway.ListCompanyJobs(ctx, "acme")
	require.True(t, jobs.Success)
	assert.Equal(t, []string{"job-1"}, jobIDs(jobs.Data))

	invalid := fx.gateway.SaveCompany(ctx, "owner-2", &domain.Company{})
	assert.Equal(t, domain.KindValidation, invalid.Kind)

	anon := fx.gateway.SaveCompany(ctx, "", &domain.Company{Name: "Anon"})
	assert.Equal(t, domain.KindAuth, anon.Kind)
}

func TestJobGateway_CompanyOwnership(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	ctx := context.Background()

	takeover := fx.gateway.SaveCompany(ctx, "mallory", &domain.Company{ID: "acme", Name: "Pwned"})
	assert.False(t, takeover.Success)
	assert.Equal(t, domain.KindForbidden, takeover.Kind)

	got := fx.gateway.GetCompany(ctx, "acme")
	require.True(t, got.Success)
	assert.Equal(t, "Acme", got.Data.Name)
	assert.Equal(t, recruiter, got.Data.OwnerID)

	renamed := fx.gateway.SaveCompany(ctx, recruiter, &domain.Company{ID: "acme", Name: "Acme Corp"})
	require.True(t, renamed.Success, renamed.Error)
	assert.Equal(t, "Acme Corp", renamed.Data.Name)
}

func TestJobGateway_RecruiterOperationsRequireOwnership(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	ctx := context.Background()

	app := fx.gateway.ApplyToJob(ctx, &domain.Application{JobID: "job-1", UserID: "candidate", CoverLetter: "hi"})
	require.True(t, app.Success, app.Error)

	tests := []struct {
		name string
		kind func(actor string) domain.ErrorKind
	}{
		{"create job", func(actor string) domain.ErrorKind {
			return fx.gateway.CreateJob(ctx, actor, testJob("", 0)).Kind
		}},
		{"update job status", func(actor string) domain.ErrorKind {
			return fx.gateway.UpdateJobStatus(ctx, actor, "job-1", domain.JobStatusInactive).Kind
		}},
		{"list applications", func(actor string) domain.ErrorKind {
			return fx.gateway.ListApplications(ctx, actor, "job-1").Kind
		}},
		{"move application", func(actor string) domain.ErrorKind {
			return fx.gateway.MoveApplication(ctx, actor, app.Data.ID, domain.ApplicationReviewing).Kind
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, domain.KindForbidden, tt.kind("mallory"))
			assert.Equal(t, domain.KindAuth, tt.kind(""))
		})
	}

	job := fx.gateway.GetJobByID(ctx, "job-1")
	require.True(t, job.Success)
	assert.Equal(t, domain.JobStatusActive, job.Data.Status)
}

func TestJobGateway_ApplicantMayOnlyWithdraw(t *testing.T) {
	fx := newGatewayFixture(t, testJob("job-1", 1))
	ctx := context.Background()

	app := fx.gateway.ApplyToJob(ctx, &domain.Application{JobID: "job-1", UserID: "candidate", CoverLetter: "hi"})
	require.True(t, app.Success, app.Error)

	promote := fx.gateway.MoveApplication(ctx, "candidate", app.Data.ID, domain.ApplicationReviewing)
	assert.Equal(t, domain.KindForbidden, promote.Kind)

	withdrawn := fx.gateway.MoveApplication(ctx, "candidate", app.Data.ID, domain.ApplicationWithdrawn)
	require.True(t, withdrawn.Success, withdrawn.Error)
	assert.Equal(t, domain.ApplicationWithdrawn, withdrawn.Data.Status)
}

func TestJobGateway_DeactivateExpired(t *testing.T) {
	expired := testJob("expired", 48)
	past := testNow.Add(-time.Hour)
	expired.ExpiresAt = &past
	fresh := testJob("fresh", 1)
	future := testNow.Add(time.Hour)
	fresh.ExpiresAt = &future
	fx := newGatewayFixture(t, expired, fresh)

	ids, err := fx.gateway.DeactivateExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"expired"}, ids)

	res := fx.gateway.ListJobs(context.Background(), domain.FilterSpecification{})
	require.True(t, res.Success)
	assert.Equal(t, []string{"fresh"}, jobIDs(res.Data))
}
