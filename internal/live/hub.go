// Package live keeps filtered item views up to date for their subscribers.
//
// Every distinct filter has one shared Query. Subscribers attach to it with
// Hub.Subscribe and must Close their Subscription when done; the Query is
// released when its last subscriber leaves. Writers call Hub.Notify after a
// change and every open Query reloads and pushes a fresh snapshot.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/model"
)

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("live hub closed")

// Loader runs the query behind a filter.
type Loader func(ctx context.Context, f model.Filter) ([]model.Item, error)

// Event is one snapshot of a view. Err is set when the view could not be
// loaded; Items is then nil.
type Event struct {
	Items []model.Item
	Err   error
}

// Hub owns the live queries.
type Hub struct {
	load    Loader
	metrics *metrics.Metrics

	mu      sync.Mutex
	queries map[model.Filter]*Query
	closed  bool

	wg sync.WaitGroup
}

// NewHub creates a hub that loads views with load. m may be nil.
func NewHub(load Loader, m *metrics.Metrics) *Hub {
	return &Hub{
		load:    load,
		metrics: m,
		queries: make(map[model.Filter]*Query),
	}
}

// Subscribe attaches to the live query for f, creating it if no subscriber
// holds it yet. The first event carries the initial snapshot and is loaded
// in the background. The subscription is closed when ctx is done or Close is
// called, whichever comes first.
func (h *Hub) Subscribe(ctx context.Context, f model.Filter) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}

	q, ok := h.queries[f]
	if !ok {
		q = &Query{hub: h, filter: f, subs: make(map[*Subscription]struct{})}
		h.queries[f] = q
		h.metrics.LiveQueries(1)
		slog.Debug("live query opened", "filter", f.String())
	}

	sub := &Subscription{query: q, ch: make(chan Event, 1)}
	q.mu.Lock()
	q.subs[sub] = struct{}{}
	q.mu.Unlock()
	h.metrics.LiveSubscriptions(1)

	h.wg.Add(1)
	h.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Close)
	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()

	go func() {
		defer h.wg.Done()
		q.refresh(ctx, sub)
	}()

	return sub, nil
}

// Notify reloads every open query and pushes the new snapshots.
func (h *Hub) Notify(ctx context.Context) {
	h.mu.Lock()
	queries := make([]*Query, 0, len(h.queries))
	for _, q := range h.queries {
		queries = append(queries, q)
	}
	h.mu.Unlock()

	for _, q := range queries {
		q.refresh(ctx, nil)
	}
}

// Len returns the number of open queries.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queries)
}

// Close closes every subscription and waits for pending initial loads.
// Later calls to Subscribe fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var subs []*Subscription
	for _, q := range h.queries {
		q.mu.Lock()
		for sub := range q.subs {
			subs = append(subs, sub)
		}
		q.mu.Unlock()
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	h.wg.Wait()
}

func (h *Hub) release(sub *Subscription) {
	q := sub.query

	h.mu.Lock()
	defer h.mu.Unlock()

	q.mu.Lock()
	_, ok := q.subs[sub]
	delete(q.subs, sub)
	empty := len(q.subs) == 0
	q.mu.Unlock()

	if !ok {
		return
	}
	h.metrics.LiveSubscriptions(-1)

	if empty && h.queries[q.filter] == q {
		delete(h.queries, q.filter)
		h.metrics.LiveQueries(-1)
		slog.Debug("live query released", "filter", q.filter.String())
	}
}

// Query is the shared handle for one filter.
type Query struct {
	hub    *Hub
	filter model.Filter

	// loading serializes reloads so a later snapshot is never overtaken
	// by an earlier one.
	loading sync.Mutex

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Filter returns the query's filter.
func (q *Query) Filter() model.Filter {
	return q.filter
}

// refresh loads the view and delivers it to only, or to every subscriber
// when only is nil.
func (q *Query) refresh(ctx context.Context, only *Subscription) {
	q.loading.Lock()
	defer q.loading.Unlock()

	var targets []*Subscription
	if only != nil {
		targets = []*Subscription{only}
	} else {
		q.mu.Lock()
		for sub := range q.subs {
			targets = append(targets, sub)
		}
		q.mu.Unlock()
	}
	if len(targets) == 0 {
		return
	}

	items, err := q.hub.load(ctx, q.filter)
	if err != nil {
		slog.Error("failed to load live query", "filter", q.filter.String(), "error", err)
		items = nil
	}
	if items == nil && err == nil {
		items = []model.Item{}
	}

	for _, sub := range targets {
		sub.deliver(Event{Items: items, Err: err})
	}
}

// Subscription receives snapshots of one Query.
type Subscription struct {
	query *Query

	mu     sync.Mutex
	ch     chan Event
	stop   func() bool
	closed bool
}

// C returns the event channel. Only the newest undelivered snapshot is kept.
// The channel is closed when the subscription closes.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Query returns the shared query handle this subscription is attached to.
func (s *Subscription) Query() *Query {
	return s.query
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.query.hub.release(s)
}

func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- ev:
	default:
		// Replace the stale snapshot the subscriber has not read yet.
		select {
		case <-s.ch:
		default:
		}
		s.ch <- ev
	}
}
