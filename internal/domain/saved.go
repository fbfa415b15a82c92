package domain

import "time"

// SavedEntry is a job bookmarked by a user.
type SavedEntry struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Job       *Job      `json:"job,omitempty"`
}

// ToggleOutcome is the authoritative saved state after a toggle.
type ToggleOutcome struct {
	Saved bool `json:"saved"`
}
