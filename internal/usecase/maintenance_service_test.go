package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobboard/internal/domain"
	"jobboard/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSchedular keeps added tasks and tracks whether it is running.
type recordingSchedular struct {
	mu      sync.Mutex
	tasks   map[string]domain.MaintenanceTask
	running bool
	starts  int
}

func newRecordingSchedular() *recordingSchedular {
	return &recordingSchedular{tasks: make(map[string]domain.MaintenanceTask)}
}

func (s *recordingSchedular) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.starts++
	s.mu.Unlock()
	<-ctx.Done()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSchedular) Stop() {}

func (s *recordingSchedular) AddTask(task domain.MaintenanceTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.Name] = task
	return nil
}

func (s *recordingSchedular) RemoveTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, name)
	return nil
}

func (s *recordingSchedular) state() (running bool, starts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.starts
}

func (s *recordingSchedular) task(name string) (domain.MaintenanceTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	return t, ok
}

func TestMaintenanceService_RunsWhileLeader(t *testing.T) {
	expired := testJob("expired", 72)
	past := testNow.Add(-time.Minute)
	expired.ExpiresAt = &past
	fx := newGatewayFixture(t, expired, testJob("live", 1))

	leader := memory.NewLeaderElection("node-1")
	sched := newRecordingSchedular()
	svc := NewMaintenanceService(leader, sched, fx.gateway, "@every 15m", "node-1", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	assert.Eventually(t, func() bool {
		running, _ := sched.state()
		return running
	}, time.Second, 10*time.Millisecond)
	assert.True(t, leader.IsLeader())

	task, ok := sched.task(ExpireTaskName)
	require.True(t, ok)
	assert.Equal(t, "@every 15m", task.Schedule)
	require.NoError(t, task.Run(context.Background()))

	got := fx.gateway.GetJobByID(context.Background(), "expired")
	require.True(t, got.Success)
	assert.Equal(t, domain.JobStatusInactive, got.Data.Status)

	// Losing leadership stops the scheduler until the next campaign wins.
	require.NoError(t, leader.Resign(context.Background()))
	assert.Eventually(t, func() bool {
		_, starts := sched.state()
		return starts >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	running, _ := sched.state()
	assert.False(t, running)
	assert.False(t, leader.IsLeader())
}

type failingExpirer struct{}

func (failingExpirer) DeactivateExpired(context.Context) ([]string, error) {
	return nil, errors.New("store down")
}

func TestMaintenanceService_ExpireJobsError(t *testing.T) {
	svc := NewMaintenanceService(memory.NewLeaderElection("n"), newRecordingSchedular(), failingExpirer{}, "@every 1m", "n", discardLogger())
	assert.EqualError(t, svc.ExpireJobs(context.Background()), "store down")
}

type flakyLeader struct {
	*memory.LeaderElection
	mu       sync.Mutex
	failures int
}

func (l *flakyLeader) Campaign(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	if l.failures > 0 {
		l.failures--
		l.mu.Unlock()
		return nil, errors.New("etcd unavailable")
	}
	l.mu.Unlock()
	return l.LeaderElection.Campaign(ctx)
}

func TestMaintenanceService_RetriesCampaign(t *testing.T) {
	leader := &flakyLeader{LeaderElection: memory.NewLeaderElection("n"), failures: 2}
	sched := newRecordingSchedular()
	svc := NewMaintenanceService(leader, sched, failingExpirer{}, "@every 1m", "n", discardLogger())
	svc.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	assert.Eventually(t, func() bool {
		running, _ := sched.state()
		return running
	}, time.Second, 10*time.Millisecond)
}
