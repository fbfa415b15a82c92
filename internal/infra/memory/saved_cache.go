package memory

import (
	"context"
	"slices"
	"sync"
)

// SavedCache keeps saved job IDs per user in process memory.
type SavedCache struct {
	mu    sync.Mutex
	users map[string][]string
}

func NewSavedCache() *SavedCache {
	return &SavedCache{users: make(map[string][]string)}
}

func (c *SavedCache) Load(_ context.Context, userID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.users[userID]), nil
}

func (c *SavedCache) Store(_ context.Context, userID string, jobIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID] = slices.Clone(jobIDs)
	return nil
}
