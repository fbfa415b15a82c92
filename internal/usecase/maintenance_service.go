package usecase

import (
	"context"
	"log/slog"
	"time"

	"jobboard/internal/domain"
	"jobboard/internal/metrics"
)

// ExpireTaskName names the task that deactivates expired postings.
const ExpireTaskName = "expire-jobs"

// Expirer deactivates postings whose expiry has passed.
type Expirer interface {
	DeactivateExpired(ctx context.Context) ([]string, error)
}

// MaintenanceService runs the maintenance scheduler while this node holds
// leadership, so only one replica expires jobs at a time.
type MaintenanceService struct {
	leaderManager domain.LeaderElectionManager
	schedular     domain.Schedular
	expirer       Expirer
	schedule      string
	nodeID        string
	retryDelay    time.Duration
	logger        *slog.Logger
}

func NewMaintenanceService(leaderManager domain.LeaderElectionManager, schedular domain.Schedular, expirer Expirer, schedule, nodeID string, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{
		leaderManager: leaderManager,
		schedular:     schedular,
		expirer:       expirer,
		schedule:      schedule,
		nodeID:        nodeID,
		retryDelay:    5 * time.Second,
		logger:        logger.With("component", "maintenance", "node_id", nodeID),
	}
}

// Start campaigns for leadership and runs the scheduler for as long as it is
// held, campaigning again after a loss. It returns when ctx is done.
func (s *MaintenanceService) Start(ctx context.Context) error {
	s.logger.Info("maintenance service starting")

	if err := s.schedular.AddTask(domain.MaintenanceTask{
		Name:     ExpireTaskName,
		Schedule: s.schedule,
		Run:      s.ExpireJobs,
	}); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("maintenance service shutting down")
			return ctx.Err()
		}

		s.logger.Info("campaigning for maintenance leadership")
		lost, err := s.leaderManager.Campaign(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Warn("leadership campaign failed, retrying", "error", err, "retry_in", s.retryDelay)
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
			continue
		}

		s.logger.Info("became leader, starting the scheduler")
		s.lead(ctx, lost)
	}
}

// lead runs the scheduler until leadership is lost or ctx is done.
func (s *MaintenanceService) lead(ctx context.Context, lost <-chan struct{}) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.schedular.Start(runCtx)
	}()

	select {
	case <-lost:
		s.logger.Warn("lost maintenance leadership")
	case <-ctx.Done():
	}
	// Clears the local leader state even when the session already expired.
	if err := s.leaderManager.Resign(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to resign leadership", "error", err)
	}
	cancel()
	<-done
}

// ExpireJobs deactivates every posting past its expiry.
func (s *MaintenanceService) ExpireJobs(ctx context.Context) error {
	ids, err := s.expirer.DeactivateExpired(ctx)
	if err != nil {
		s.logger.Error("failed to expire jobs", "error", err)
		return err
	}
	metrics.JobsExpiredTotal.Add(float64(len(ids)))
	if len(ids) > 0 {
		s.logger.Info("expired job postings", "count", len(ids))
	}
	return nil
}
