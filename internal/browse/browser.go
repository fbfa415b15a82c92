package browse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jobboard/internal/domain"
)

// DefaultDebounce is the quiet period applied to change notifications before
// a refetch is issued.
const DefaultDebounce = 250 * time.Millisecond

// Source is the part of the gateway a Browser reads from.
type Source interface {
	ListJobs(ctx context.Context, spec domain.FilterSpecification) domain.Result[[]domain.Job]
	SubscribeToJobChanges(ctx context.Context, onChange func(domain.ChangeEvent)) (domain.Subscription, error)
}

// View is a snapshot of what a Browser currently displays.
type View struct {
	Page
	Filter  domain.FilterSpecification `json:"filter"`
	Loading bool                       `json:"loading"`
	Err     string                     `json:"error,omitempty"`
}

// Browser owns the canonical job set for one browsing session and derives the
// displayed page from it. Responses to superseded fetches are discarded,
// change notifications collapse into at most one pending refetch, and after
// Close nothing mutates its state.
type Browser struct {
	source   Source
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	filter   domain.FilterSpecification
	sortKey  SortKey
	pages    int
	reset    bool // next successful fetch restarts at page 1
	all      []domain.Job
	gen      uint64
	loading  bool
	err      string
	started  bool
	closed   bool
	sub      domain.Subscription
	onUpdate func(View)

	refetch chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewBrowser creates a Browser. A non-positive debounce uses DefaultDebounce.
func NewBrowser(source Source, logger *slog.Logger, debounce time.Duration) *Browser {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Browser{
		source:   source,
		logger:   logger.With("component", "browser"),
		debounce: debounce,
		now:      time.Now,
		sortKey:  SortRelevance,
		pages:    1,
		refetch:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// OnUpdate registers fn to receive a snapshot after every state change. It
// must be set before Start and must not call Close.
func (b *Browser) OnUpdate(fn func(View)) {
	b.mu.Lock()
	b.onUpdate = fn
	b.mu.Unlock()
}

// Start subscribes to job changes and performs the first fetch.
func (b *Browser) Start(ctx context.Context, spec domain.FilterSpecification, key SortKey) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("browser is closed")
	}
	if b.started {
		b.mu.Unlock()
		return errors.New("browser already started")
	}
	b.started = true
	b.filter = spec
	b.sortKey = key
	b.reset = true
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.mu.Unlock()

	sub, err := b.source.SubscribeToJobChanges(loopCtx, b.notifyChange)
	if err != nil {
		b.logger.Warn("live updates unavailable", "error", err)
	} else {
		b.mu.Lock()
		b.sub = sub
		b.mu.Unlock()
	}

	go b.loop(loopCtx)
	b.fetch(ctx)
	return nil
}

// SetFilter replaces the filter and restarts from page 1 on a fresh fetch.
func (b *Browser) SetFilter(ctx context.Context, spec domain.FilterSpecification) View {
	b.mu.Lock()
	b.filter = spec
	b.reset = true
	b.mu.Unlock()
	b.fetch(ctx)
	return b.View()
}

// SetSearch replaces only the search text of the current filter.
func (b *Browser) SetSearch(ctx context.Context, text string) View {
	b.mu.Lock()
	b.filter.Search = text
	b.reset = true
	b.mu.Unlock()
	b.fetch(ctx)
	return b.View()
}

// SetSort changes the ordering and restarts from page 1 on a fresh fetch.
func (b *Browser) SetSort(ctx context.Context, key SortKey) View {
	b.mu.Lock()
	b.sortKey = key
	b.reset = true
	b.mu.Unlock()
	b.fetch(ctx)
	return b.View()
}

// LoadMore reveals the next page of the already fetched set.
func (b *Browser) LoadMore() View {
	b.mu.Lock()
	if !b.closed && HasMore(len(b.all), b.pages) {
		b.pages++
	}
	b.mu.Unlock()
	b.emit()
	return b.View()
}

// Refresh refetches with the current filter, keeping the revealed page count.
func (b *Browser) Refresh(ctx context.Context) View {
	b.fetch(ctx)
	return b.View()
}

// View returns the current snapshot.
func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *Browser) viewLocked() View {
	return View{
		Page:    Derive(b.all, b.sortKey, b.pages),
		Filter:  b.filter,
		Loading: b.loading,
		Err:     b.err,
	}
}

// Close releases the change subscription and stops the refetch loop. Any
// fetch still in flight completes without touching state.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	sub := b.sub
	b.sub = nil
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	if started {
		<-b.done
	}
	return err
}

func (b *Browser) notifyChange(ev domain.ChangeEvent) {
	b.logger.Debug("job change received", "kind", ev.Kind, "job_id", ev.JobID)
	select {
	case b.refetch <- struct{}{}:
	default:
	}
}

func (b *Browser) loop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.refetch:
		}

		timer := time.NewTimer(b.debounce)
	quiet:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-b.refetch:
				timer.Reset(b.debounce)
			case <-timer.C:
				break quiet
			}
		}
		b.fetch(ctx)
	}
}

// fetch loads the job set for the current filter. A pending filter, search
// or sort change restarts the listing at page 1, whichever fetch lands it;
// otherwise the revealed page count is kept and clamped to the new set.
func (b *Browser) fetch(ctx context.Context) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.gen++
	gen := b.gen
	spec := b.filter
	resetting := b.reset
	b.loading = true
	b.mu.Unlock()
	b.emit()

	res := b.source.ListJobs(ctx, spec)

	b.mu.Lock()
	if b.closed || gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.loading = false
	if !res.Success {
		b.err = res.Error
		b.mu.Unlock()
		b.logger.Warn("job fetch failed", "kind", res.Kind, "error", res.Error)
		b.emit()
		return
	}
	b.err = ""
	b.all = Filter(res.Data, spec, b.now())
	if resetting {
		b.pages = 1
		b.reset = false
	} else {
		b.pages = clampPages(b.pages, len(b.all))
	}
	b.mu.Unlock()
	b.emit()
}

func (b *Browser) emit() {
	b.mu.Lock()
	fn := b.onUpdate
	if fn == nil || b.closed {
		b.mu.Unlock()
		return
	}
	v := b.viewLocked()
	b.mu.Unlock()
	fn(v)
}

func clampPages(pages, total int) int {
	maxPages := (total + PageSize - 1) / PageSize
	if maxPages < 1 {
		maxPages = 1
	}
	return max(1, min(pages, maxPages))
}
