package memory

import (
	"context"
	"sync"

	"jobboard/internal/domain"
)

// ChangeFeed delivers published events to in-process subscribers. Each
// subscriber has its own goroutine so a slow handler never blocks Publish.
type ChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

// NewChangeFeed creates an in-process change feed.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[int]*subscription)}
}

type subscription struct {
	feed   *ChangeFeed
	id     int
	events chan domain.ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (f *ChangeFeed) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	f.nextID++
	sub := &subscription{
		feed:   f,
		id:     f.nextID,
		events: make(chan domain.ChangeEvent, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	f.subs[sub.id] = sub
	f.mu.Unlock()

	go func() {
		defer close(sub.done)
		defer f.remove(sub.id)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-sub.events:
				handler(ev)
			}
		}
	}()
	return sub, nil
}

func (f *ChangeFeed) Publish(_ context.Context, event domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		select {
		case sub.events <- event:
		default:
			// Subscriber is saturated; it already has a refetch pending.
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (f *ChangeFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *ChangeFeed) remove(id int) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()
}

// Unsubscribe stops delivery. Ending the subscribe context has the same
// effect.
func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.feed.remove(s.id)
		s.cancel()
		<-s.done
	})
	return nil
}
