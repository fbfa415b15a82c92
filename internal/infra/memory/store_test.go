package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"jobboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newSeededStore(jobs ...*domain.Job) *Store {
	s := NewStore()
	s.SetClock(func() time.Time { return storeNow })
	s.Seed([]*domain.Company{{ID: "acme", Name: "Acme"}}, jobs)
	return s
}

func activeJob(id string, hoursAgo int) *domain.Job {
	return &domain.Job{
		ID:              id,
		Title:           "Job " + id,
		EmploymentType:  domain.EmploymentFullTime,
		ExperienceLevel: domain.ExperienceMid,
		PostedAt:        storeNow.Add(-time.Duration(hoursAgo) * time.Hour),
		Status:          domain.JobStatusActive,
		CompanyID:       "acme",
	}
}

func TestJobRepo_ListNewestFirstAndCopies(t *testing.T) {
	s := newSeededStore(activeJob("old", 5), activeJob("new", 1))
	ctx := context.Background()

	jobs, err := s.Jobs().List(ctx, domain.FilterSpecification{}, storeNow)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "new", jobs[0].ID)

	jobs[0].Title = "mutated"
	again, err := s.Jobs().Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "Job new", again.Title)
	require.NotNil(t, again.Company)
	assert.Equal(t, "Acme", again.Company.Name)
}

func TestJobRepo_DeactivateExpired(t *testing.T) {
	expired := activeJob("expired", 48)
	past := storeNow.Add(-time.Hour)
	expired.ExpiresAt = &past
	future := storeNow.Add(time.Hour)
	pending := activeJob("pending", 1)
	pending.ExpiresAt = &future
	s := newSeededStore(expired, pending, activeJob("open", 2))

	ids, err := s.Jobs().DeactivateExpired(context.Background(), storeNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"expired"}, ids)

	ids, err = s.Jobs().DeactivateExpired(context.Background(), storeNow)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSavedRepo_FindInsertDelete(t *testing.T) {
	s := newSeededStore(activeJob("j1", 1))
	ctx := context.Background()
	repo := s.SavedJobs()

	_, err := repo.Find(ctx, "j1", "u1")
	assert.ErrorIs(t, err, domain.ErrSavedNotFound)

	entry := &domain.SavedEntry{JobID: "j1", UserID: "u1"}
	require.NoError(t, repo.Insert(ctx, entry))
	assert.NotEmpty(t, entry.ID)

	dup := &domain.SavedEntry{JobID: "j1", UserID: "u1"}
	require.NoError(t, repo.Insert(ctx, dup))
	assert.Equal(t, entry.ID, dup.ID)

	assert.ErrorIs(t, repo.Insert(ctx, &domain.SavedEntry{JobID: "ghost", UserID: "u1"}), domain.ErrJobNotFound)

	entries, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Job)

	require.NoError(t, repo.Delete(ctx, entry.ID))
	_, err = repo.Find(ctx, "j1", "u1")
	assert.ErrorIs(t, err, domain.ErrSavedNotFound)

	s.SeedSaved(&domain.SavedEntry{JobID: "j1", UserID: "u2"})
	s.SeedSaved(&domain.SavedEntry{JobID: "j1", UserID: "u2"})
	_, err = repo.Find(ctx, "j1", "u2")
	assert.ErrorIs(t, err, domain.ErrDuplicateSaved)
}

func TestCompanyRepo_SaveKeepsOwner(t *testing.T) {
	s := newSeededStore()
	ctx := context.Background()

	c := &domain.Company{Name: "Globex", OwnerID: "alice"}
	require.NoError(t, s.Companies().Save(ctx, c))
	require.NotEmpty(t, c.ID)

	err := s.Companies().Save(ctx, &domain.Company{ID: c.ID, Name: "Pwned", OwnerID: "mallory"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := s.Companies().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.Name)
	assert.Equal(t, "alice", got.OwnerID)

	require.NoError(t, s.Companies().Save(ctx, &domain.Company{ID: c.ID, Name: "Globex Corp", OwnerID: "alice"}))
	got, err = s.Companies().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Globex Corp", got.Name)
}

func TestApplicationRepo_OnePerUser(t *testing.T) {
	s := newSeededStore(activeJob("j1", 1))
	ctx := context.Background()

	app := &domain.Application{JobID: "j1", UserID: "u1", Status: domain.ApplicationSubmitted}
	require.NoError(t, s.Applications().Create(ctx, app))
	assert.ErrorIs(t, s.Applications().Create(ctx, &domain.Application{JobID: "j1", UserID: "u1"}), domain.ErrAlreadyApplied)

	moved, err := s.Applications().UpdateStatus(ctx, app.ID, domain.ApplicationReviewing)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationReviewing, moved.Status)

	_, err = s.Applications().Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
}

func TestChangeFeed_DeliversUntilUnsubscribed(t *testing.T) {
	feed := NewChangeFeed()
	var got atomic.Int32

	sub, err := feed.Subscribe(context.Background(), func(domain.ChangeEvent) { got.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers())

	require.NoError(t, feed.Publish(context.Background(), domain.ChangeEvent{Kind: domain.ChangeInsert, JobID: "j1"}))
	assert.Eventually(t, func() bool { return got.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	assert.Equal(t, 0, feed.Subscribers())

	require.NoError(t, feed.Publish(context.Background(), domain.ChangeEvent{Kind: domain.ChangeDelete, JobID: "j1"}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), got.Load())
}

func TestChangeFeed_ContextEndRemovesSubscriber(t *testing.T) {
	feed := NewChangeFeed()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := feed.Subscribe(ctx, func(domain.ChangeEvent) {})
	require.NoError(t, err)
	require.Equal(t, 1, feed.Subscribers())

	cancel()
	assert.Eventually(t, func() bool { return feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLeaderElection(t *testing.T) {
	l := NewLeaderElection("n1")
	lost, err := l.Campaign(context.Background())
	require.NoError(t, err)
	assert.True(t, l.IsLeader())

	require.NoError(t, l.Resign(context.Background()))
	assert.False(t, l.IsLeader())
	_, open := <-lost
	assert.False(t, open)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Campaign(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSavedCache_ReturnsCopies(t *testing.T) {
	c := NewSavedCache()
	ids := []string{"a", "b"}
	require.NoError(t, c.Store(context.Background(), "u1", ids))
	ids[0] = "z"

	got, err := c.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}
