package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"jobboard/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const listenRetryDelay = 2 * time.Second

// listener runs one LISTEN session: it calls ready once the session is
// listening and hands every payload to deliver until ctx ends or the
// session fails.
type listener interface {
	Listen(ctx context.Context, ready func(), deliver func(payload string)) error
}

// ChangeFeed relays NOTIFY payloads from the jobs trigger. All subscriptions
// share one LISTEN session, opened by the first subscriber and closed when
// the last one leaves; a lost session is reopened.
type ChangeFeed struct {
	listener   listener
	retryDelay time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	handlers map[uint64]func(domain.ChangeEvent)
	nextID   uint64
	stop     context.CancelFunc
}

// NewChangeFeed creates a LISTEN/NOTIFY backed change feed.
func NewChangeFeed(pool *pgxpool.Pool, logger *slog.Logger) *ChangeFeed {
	return newChangeFeed(poolListener{pool: pool}, logger)
}

func newChangeFeed(l listener, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{
		listener:   l,
		retryDelay: listenRetryDelay,
		logger:     logger.With("component", "postgres-change-feed"),
		handlers:   make(map[uint64]func(domain.ChangeEvent)),
	}
}

type listenSubscription struct {
	feed     *ChangeFeed
	id       uint64
	once     sync.Once
	released chan struct{}
}

func (s *listenSubscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.released)
		s.feed.remove(s.id)
	})
	return nil
}

// Subscribe registers handler. The first subscriber opens the shared session
// and waits for its LISTEN to succeed. The subscription ends on Unsubscribe
// or when ctx is done. Handlers run on the listener goroutine and must not
// block.
func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.handlers[id] = handler
	var ready chan error
	if f.stop == nil {
		ready = make(chan error, 1)
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f.stop = cancel
		go f.run(runCtx, ready)
	}
	f.mu.Unlock()

	if ready != nil {
		select {
		case err := <-ready:
			if err != nil {
				f.remove(id)
				return nil, err
			}
		case <-ctx.Done():
			f.remove(id)
			return nil, ctx.Err()
		}
	}

	sub := &listenSubscription{feed: f, id: id, released: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.released:
		}
	}()
	return sub, nil
}

// Subscribers reports the number of live subscriptions.
func (f *ChangeFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// remove drops a handler and stops the shared session once none remain.
func (f *ChangeFeed) remove(id uint64) {
	f.mu.Lock()
	delete(f.handlers, id)
	var stop context.CancelFunc
	if len(f.handlers) == 0 {
		stop = f.stop
		f.stop = nil
	}
	f.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// run keeps the shared session open until ctx ends. The outcome of the first
// LISTEN is reported on ready.
func (f *ChangeFeed) run(ctx context.Context, ready chan<- error) {
	first := true
	report := func(err error) {
		if first {
			first = false
			ready <- err
		}
	}

	for {
		err := f.listener.Listen(ctx, func() { report(nil) }, f.dispatch)
		if ctx.Err() != nil {
			report(ctx.Err())
			return
		}
		report(err)
		f.logger.Warn("lost job change listener, reconnecting", "error", err, "retry_in", f.retryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.retryDelay):
		}
	}
}

func (f *ChangeFeed) dispatch(payload string) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		f.logger.Warn("discarding malformed job change", "payload", payload, "error", err)
		return
	}

	f.mu.Lock()
	handlers := make([]func(domain.ChangeEvent), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Publish is a no-op; the jobs trigger announces every change.
func (f *ChangeFeed) Publish(context.Context, domain.ChangeEvent) error { return nil }

// poolListener runs LISTEN on a connection taken out of the pool.
type poolListener struct {
	pool *pgxpool.Pool
}

func (l poolListener) Listen(ctx context.Context, ready func(), deliver func(string)) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return wrapErr("acquire listen connection", err)
	}
	// The session holds LISTEN state, so it never returns to the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return wrapErr("listen", err)
	}
	ready()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return wrapErr("wait for notification", err)
		}
		deliver(n.Payload)
	}
}
