package domain

import "context"

// LeaderElectionManager elects the single replica that runs maintenance.
type LeaderElectionManager interface {
	// Campaign blocks until leadership is won; the returned channel is
	// closed when it is lost.
	Campaign(ctx context.Context) (<-chan struct{}, error)
	Resign(ctx context.Context) error
	IsLeader() bool
}
