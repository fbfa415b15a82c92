package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"jobboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeListener stands in for a LISTEN connection. Payloads sent on notify go
// to whichever session is open; sending on drop ends the open session.
type fakeListener struct {
	notify chan string
	drop   chan struct{}

	mu       sync.Mutex
	sessions int
	active   int
	failures []error
}

func newFakeListener(failures ...error) *fakeListener {
	return &fakeListener{notify: make(chan string), drop: make(chan struct{}), failures: failures}
}

func (l *fakeListener) Listen(ctx context.Context, ready func(), deliver func(string)) error {
	l.mu.Lock()
	l.sessions++
	var fail error
	if len(l.failures) > 0 {
		fail, l.failures = l.failures[0], l.failures[1:]
	}
	l.active++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.active--
		l.mu.Unlock()
	}()

	if fail != nil {
		return fail
	}
	ready()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.drop:
			return errors.New("connection reset")
		case p := <-l.notify:
			deliver(p)
		}
	}
}

func (l *fakeListener) counts() (sessions, active int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions, l.active
}

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) handle(ev domain.ChangeEvent) {
	r.mu.Lock()
	r.ids = append(r.ids, ev.JobID)
	r.mu.Unlock()
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newTestFeed(l listener) *ChangeFeed {
	f := newChangeFeed(l, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	f.retryDelay = time.Millisecond
	return f
}

func TestChangeFeed_SubscribersShareOneSession(t *testing.T) {
	l := newFakeListener()
	feed := newTestFeed(l)
	ctx := context.Background()

	recs := []*recorder{{}, {}, {}}
	subs := make([]domain.Subscription, 0, len(recs))
	for _, r := range recs {
		sub, err := feed.Subscribe(ctx, r.handle)
		require.NoError(t, err)
		subs = append(subs, sub)
	}
	sessions, active := l.counts()
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, active)
	assert.Equal(t, 3, feed.Subscribers())

	l.notify <- `{"kind":"update","job_id":"job-1"}`
	l.notify <- `not json`
	l.notify <- `{"kind":"insert","job_id":"job-2"}`
	for _, r := range recs {
		assert.Eventually(t, func() bool { return len(r.got()) == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"job-1", "job-2"}, r.got())
	}

	require.NoError(t, subs[0].Unsubscribe())
	require.NoError(t, subs[1].Unsubscribe())
	_, active = l.counts()
	assert.Equal(t, 1, active)

	require.NoError(t, subs[2].Unsubscribe())
	assert.Eventually(t, func() bool {
		_, active := l.counts()
		return active == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, feed.Subscribers())
}

func TestChangeFeed_ReopensLostSession(t *testing.T) {
	l := newFakeListener()
	feed := newTestFeed(l)
	r := &recorder{}
	sub, err := feed.Subscribe(context.Background(), r.handle)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	l.drop <- struct{}{}
	l.notify <- `{"kind":"delete","job_id":"job-9"}`

	assert.Eventually(t, func() bool { return len(r.got()) == 1 }, time.Second, 5*time.Millisecond)
	sessions, _ := l.counts()
	assert.Equal(t, 2, sessions)
}

func TestChangeFeed_FirstListenFailure(t *testing.T) {
	l := newFakeListener(errors.New("too many connections"))
	feed := newTestFeed(l)

	sub, err := feed.Subscribe(context.Background(), func(domain.ChangeEvent) {})
	assert.Nil(t, sub)
	assert.EqualError(t, err, "too many connections")
	assert.Equal(t, 0, feed.Subscribers())
	assert.Eventually(t, func() bool {
		_, active := l.counts()
		return active == 0
	}, time.Second, 5*time.Millisecond)
}

func TestChangeFeed_ContextEndsSubscription(t *testing.T) {
	l := newFakeListener()
	feed := newTestFeed(l)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := feed.Subscribe(ctx, func(domain.ChangeEvent) {})
	require.NoError(t, err)
	require.Equal(t, 1, feed.Subscribers())

	cancel()
	assert.Eventually(t, func() bool { return feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, active := l.counts()
		return active == 0
	}, time.Second, 5*time.Millisecond)
}
