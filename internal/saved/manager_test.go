package saved

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"jobboard/internal/domain"
	"jobboard/internal/infra/memory"
	"jobboard/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway answers from fixed results and records toggle calls.
type stubGateway struct {
	toggles []domain.Result[domain.ToggleOutcome]
	list    domain.Result[[]domain.SavedEntry]
	calls   int
}

func (g *stubGateway) ToggleSavedJob(context.Context, string, string) domain.Result[domain.ToggleOutcome] {
	res := g.toggles[g.calls]
	g.calls++
	return res
}

func (g *stubGateway) ListSavedJobs(context.Context, string) domain.Result[[]domain.SavedEntry] {
	return g.list
}

type brokenCache struct{}

func (brokenCache) Load(context.Context, string) ([]string, error) { return nil, errors.New("cache down") }
func (brokenCache) Store(context.Context, string, []string) error { return errors.New("cache down") }

func testLogger() *slog.Logger { return slog.New(slog.NewJSONHandler(io.Discard, nil)) }

func TestManager_AnonymousToggleFails(t *testing.T) {
	gw := &stubGateway{}
	m := NewManager(gw, nil, "", testLogger())

	saved, err := m.Toggle(context.Background(), "job-1")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.False(t, saved)
	assert.Empty(t, m.IDs())
	assert.Zero(t, gw.calls, "no gateway mutation for anonymous users")
}

func TestManager_ToggleFollowsGateway(t *testing.T) {
	gw := &stubGateway{toggles: []domain.Result[domain.ToggleOutcome]{
		domain.OK(domain.ToggleOutcome{Saved: true}),
		domain.OK(domain.ToggleOutcome{Saved: true}),
		domain.OK(domain.ToggleOutcome{Saved: false}),
	}}
	m := NewManager(gw, nil, "user-1", testLogger())
	ctx := context.Background()

	saved, err := m.Toggle(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, m.IsSaved("job-1"))

	// Another session may have unsaved it meanwhile; the confirmed state wins.
	saved, err = m.Toggle(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, m.IsSaved("job-1"))

	saved, err = m.Toggle(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.False(t, m.IsSaved("job-1"))
}

func TestManager_FailedToggleLeavesState(t *testing.T) {
	gw := &stubGateway{toggles: []domain.Result[domain.ToggleOutcome]{
		domain.OK(domain.ToggleOutcome{Saved: true}),
		domain.Fail[domain.ToggleOutcome](domain.KindConnectivity, "unreachable"),
	}}
	m := NewManager(gw, nil, "user-1", testLogger())
	ctx := context.Background()

	_, err := m.Toggle(ctx, "job-1")
	require.NoError(t, err)

	saved, err := m.Toggle(ctx, "job-1")
	var rErr *domain.ResultError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, domain.KindConnectivity, rErr.Kind)
	assert.True(t, saved)
	assert.Equal(t, []string{"job-1"}, m.IDs())
}

func TestManager_LoadPreselectsFromCache(t *testing.T) {
	cache := memory.NewSavedCache()
	require.NoError(t, cache.Store(context.Background(), "user-1", []string{"stale", "job-2"}))

	gw := &stubGateway{list: domain.Fail[[]domain.SavedEntry](domain.KindConnectivity, "unreachable")}
	m := NewManager(gw, cache, "user-1", testLogger())

	err := m.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"job-2", "stale"}, m.IDs(), "cached IDs stay preselected when the authoritative load fails")

	gw.list = domain.OK([]domain.SavedEntry{{JobID: "job-2"}, {JobID: "job-3"}})
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, []string{"job-2", "job-3"}, m.IDs())

	cached, err := cache.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-2", "job-3"}, cached)
}

func TestManager_CacheFailuresAreNotFatal(t *testing.T) {
	gw := &stubGateway{
		list:    domain.OK([]domain.SavedEntry{{JobID: "job-1"}}),
		toggles: []domain.Result[domain.ToggleOutcome]{domain.OK(domain.ToggleOutcome{Saved: true})},
	}
	m := NewManager(gw, brokenCache{}, "user-1", testLogger())

	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, []string{"job-1"}, m.IDs())

	saved, err := m.Toggle(context.Background(), "job-2")
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestManager_WithGatewayScenario(t *testing.T) {
	store := memory.NewStore()
	store.Seed([]*domain.Company{{ID: "acme", Name: "Acme"}}, []*domain.Job{{
		ID: "job-1", Title: "Go dev", CompanyID: "acme", Status: domain.JobStatusActive,
		EmploymentType: domain.EmploymentFullTime, ExperienceLevel: domain.ExperienceMid,
	}})
	gw := usecase.NewJobGateway(usecase.Stores{
		Jobs:         store.Jobs(),
		Companies:    store.Companies(),
		Saved:        store.SavedJobs(),
		Applications: store.Applications(),
	}, memory.NewChangeFeed(), testLogger())
	ctx := context.Background()

	anon := NewManager(gw, nil, "", testLogger())
	_, err := anon.Toggle(ctx, "job-1")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	_, err = store.SavedJobs().Find(ctx, "job-1", "")
	assert.ErrorIs(t, err, domain.ErrSavedNotFound)

	m := NewManager(gw, memory.NewSavedCache(), "user-1", testLogger())
	require.NoError(t, m.Load(ctx))
	assert.Empty(t, m.IDs())

	saved, err := m.Toggle(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, saved)

	other := NewManager(gw, nil, "user-1", testLogger())
	require.NoError(t, other.Load(ctx))
	assert.True(t, other.IsSaved("job-1"))

	saved, err = m.Toggle(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, saved)
}
