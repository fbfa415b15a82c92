package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"jobboard/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

// ChangeChannel is the pub/sub channel carrying job change events.
const ChangeChannel = "jobboard:jobs_changes"

// ChangeFeed fans out job changes over Redis pub/sub so every instance sees
// writes made by any other.
type ChangeFeed struct {
	rdb    *goredis.Client
	logger *slog.Logger
}

func NewChangeFeed(rdb *goredis.Client, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{rdb: rdb, logger: logger.With("component", "redis-change-feed")}
}

type pubsubSubscription struct {
	pubsub *goredis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *pubsubSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		s.err = s.pubsub.Close()
		<-s.done
	})
	return s.err
}

func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	pubsub := f.rdb.Subscribe(ctx, ChangeChannel)
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChangeChannel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &pubsubSubscription{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}
	ch := pubsub.Channel()

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					f.logger.Warn("discarding malformed job change", "payload", msg.Payload, "error", err)
					continue
				}
				handler(ev)
			}
		}
	}()
	return sub, nil
}

func (f *ChangeFeed) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := f.rdb.Publish(ctx, ChangeChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish job change: %w", err)
	}
	return nil
}

func decodeEvent(payload string) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.JobID == "" {
		return ev, fmt.Errorf("change event without job_id")
	}
	return ev, nil
}
