// Package saved tracks which jobs a user has bookmarked.
package saved

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"jobboard/internal/domain"
	"jobboard/internal/metrics"
)

// Gateway is the subset of the job gateway the manager needs.
type Gateway interface {
	ToggleSavedJob(ctx context.Context, jobID, userID string) domain.Result[domain.ToggleOutcome]
	ListSavedJobs(ctx context.Context, userID string) domain.Result[[]domain.SavedEntry]
}

// Cache persists saved job IDs per user so state can be preselected before
// the authoritative list arrives. It is never a source of truth.
type Cache interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Store(ctx context.Context, userID string, jobIDs []string) error
}

// Manager holds the saved set of one user. An empty user ID is anonymous:
// the set stays empty and toggles fail with domain.ErrAuthRequired.
type Manager struct {
	gateway Gateway
	cache   Cache
	userID  string
	logger  *slog.Logger

	mu    sync.RWMutex
	saved map[string]struct{}
}

// NewManager creates a manager for userID. cache may be nil.
func NewManager(gateway Gateway, cache Cache, userID string, logger *slog.Logger) *Manager {
	return &Manager{
		gateway: gateway,
		cache:   cache,
		userID:  userID,
		logger:  logger.With("component", "saved", "user_id", userID),
		saved:   make(map[string]struct{}),
	}
}

// UserID returns the identity the manager acts for.
func (m *Manager) UserID() string { return m.userID }

// Load preselects from the cache, then replaces the set with the gateway's
// list. On failure the preselected set is kept and the error returned.
func (m *Manager) Load(ctx context.Context) error {
	if m.userID == "" {
		return nil
	}

	if m.cache != nil {
		ids, err := m.cache.Load(ctx, m.userID)
		if err != nil {
			m.logger.Warn("failed to read saved job cache", "error", err)
		} else {
			m.replace(ids)
		}
	}

	res := m.gateway.ListSavedJobs(ctx, m.userID)
	if err := res.Err(); err != nil {
		return err
	}
	ids := make([]string, 0, len(res.Data))
	for _, e := range res.Data {
		ids = append(ids, e.JobID)
	}
	m.replace(ids)
	m.persist(ctx)
	return nil
}

// Toggle flips the saved state of jobID and returns the state the gateway
// confirmed. On failure the local state is unchanged.
func (m *Manager) Toggle(ctx context.Context, jobID string) (bool, error) {
	if m.userID == "" {
		metrics.SavedJobTogglesTotal.WithLabelValues("unauthenticated").Inc()
		return false, domain.ErrAuthRequired
	}

	res := m.gateway.ToggleSavedJob(ctx, jobID, m.userID)
	if err := res.Err(); err != nil {
		metrics.SavedJobTogglesTotal.WithLabelValues("failed").Inc()
		m.logger.Warn("saved job toggle failed", "job_id", jobID, "kind", res.Kind, "error", res.Error)
		return m.IsSaved(jobID), err
	}

	m.mu.Lock()
	if res.Data.Saved {
		m.saved[jobID] = struct{}{}
	} else {
		delete(m.saved, jobID)
	}
	m.mu.Unlock()

	if res.Data.Saved {
		metrics.SavedJobTogglesTotal.WithLabelValues("saved").Inc()
	} else {
		metrics.SavedJobTogglesTotal.WithLabelValues("unsaved").Inc()
	}
	m.persist(ctx)
	return res.Data.Saved, nil
}

// IsSaved reports the local saved state of jobID.
func (m *Manager) IsSaved(jobID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.saved[jobID]
	return ok
}

// IDs returns the saved job IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.saved))
	for id := range m.saved {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

func (m *Manager) replace(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	m.mu.Lock()
	m.saved = set
	m.mu.Unlock()
}

func (m *Manager) persist(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Store(ctx, m.userID, m.IDs()); err != nil {
		m.logger.Warn("failed to write saved job cache", "error", err)
	}
}
