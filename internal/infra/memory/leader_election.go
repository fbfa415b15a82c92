package memory

import (
	"context"
	"sync"

	"jobboard/internal/metrics"
)

// LeaderElection makes a single replica its own leader. Leadership is lost
// only through Resign.
type LeaderElection struct {
	nodeID string
	mu     sync.Mutex
	lost   chan struct{}
}

func NewLeaderElection(nodeID string) *LeaderElection {
	return &LeaderElection{nodeID: nodeID}
}

func (l *LeaderElection) Campaign(ctx context.Context) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost == nil {
		l.lost = make(chan struct{})
		metrics.IsLeader.WithLabelValues(l.nodeID).Set(1)
	}
	return l.lost, nil
}

func (l *LeaderElection) Resign(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost != nil {
		close(l.lost)
		l.lost = nil
		metrics.IsLeader.WithLabelValues(l.nodeID).Set(0)
	}
	return nil
}

func (l *LeaderElection) IsLeader() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost != nil
}
