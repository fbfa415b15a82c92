package domain

import (
	"context"
	"time"
)

// ChangeKind is the kind of row mutation reported on the jobs change channel.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent announces that a row of the jobs table changed.
type ChangeEvent struct {
	Kind  ChangeKind `json:"kind"`
	JobID string     `json:"job_id"`
	At    time.Time  `json:"at"`
}

// Subscription is a live registration on a ChangeFeed. Its single owner
// must call Unsubscribe on teardown; the handler is not invoked afterwards.
type Subscription interface {
	Unsubscribe() error
}

// ChangeFeed fans out job change events to subscribers.
type ChangeFeed interface {
	// Subscribe registers handler for every event until the subscription is
	// released or ctx is done.
	Subscribe(ctx context.Context, handler func(ChangeEvent)) (Subscription, error)
	// Publish announces a change. Feeds fed by the store itself may treat
	// this as a no-op.
	Publish(ctx context.Context, event ChangeEvent) error
}
