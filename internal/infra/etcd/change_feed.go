package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"jobboard/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	ChangePrefix = "/jobboard/changes/"
	// ChangeTTL bounds how long an event key survives; watchers only need
	// the PUT notification.
	ChangeTTL = 60 // seconds
)

// ChangeFeed carries job changes as short-lived keys under ChangePrefix.
type ChangeFeed struct {
	client     *clientv3.Client
	watcher    clientv3.Watcher
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewChangeFeed(client *clientv3.Client, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{
		client:     client,
		watcher:    client,
		retryDelay: time.Second,
		logger:     logger.With("component", "etcd-change-feed"),
	}
}

func changeKey(ev domain.ChangeEvent) string {
	return ChangePrefix + strconv.FormatInt(ev.At.UnixNano(), 10) + "-" + ev.JobID
}

func (f *ChangeFeed) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	lease, err := f.client.Grant(ctx, ChangeTTL)
	if err != nil {
		return fmt.Errorf("failed to grant change lease: %w", err)
	}
	if _, err := f.client.Put(ctx, changeKey(ev), string(payload), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to put change event: %w", err)
	}
	return nil
}

type watchSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *watchSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// Subscribe watches ChangePrefix from the current revision onwards. A watch
// stream that ends while the subscription is live, on leader loss or
// compaction, is reopened after the last revision seen.
func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &watchSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		var rev int64
		for {
			rev = f.watch(ctx, rev, handler)
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("job change watch closed, reopening", "revision", rev, "retry_in", f.retryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.retryDelay):
			}
		}
	}()
	return sub, nil
}

// watch consumes one watch stream resuming after rev and returns the last
// revision observed when the stream ends.
func (f *ChangeFeed) watch(ctx context.Context, rev int64, handler func(domain.ChangeEvent)) int64 {
	opts := []clientv3.OpOption{clientv3.WithPrefix(), clientv3.WithFilterDelete()}
	if rev > 0 {
		opts = append(opts, clientv3.WithRev(rev+1))
	}

	for resp := range f.watcher.Watch(clientv3.WithRequireLeader(ctx), ChangePrefix, opts...) {
		if resp.CompactRevision > rev {
			// History before the compaction point is gone.
			rev = resp.CompactRevision - 1
		}
		if err := resp.Err(); err != nil {
			f.logger.Warn("job change watch error", "error", err)
			continue
		}
		for _, kv := range resp.Events {
			var ev domain.ChangeEvent
			if err := json.Unmarshal(kv.Kv.Value, &ev); err != nil {
				f.logger.Warn("discarding malformed job change", "key", string(kv.Kv.Key), "error", err)
			} else {
				handler(ev)
			}
			rev = max(rev, kv.Kv.ModRevision)
		}
		rev = max(rev, resp.Header.Revision)
	}
	return rev
}
