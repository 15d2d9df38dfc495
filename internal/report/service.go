// Package report is the item repository facade: the read views over the
// global item collection and the report operation that writes an item to
// both the global collection and the reporter's own list.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/live"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/model"
)

// Errors returned by the facade.
var (
	ErrNotAuthenticated = errors.New("you must be logged in to report an item")
	ErrReportFailed     = errors.New("failed to report item")
	ErrNoLiveHub        = errors.New("live views are not enabled")
)

// Default retry policy for the user copy write.
const (
	DefaultCopyAttempts        = 4
	DefaultCopyInitialInterval = 100 * time.Millisecond
)

// Options configures a Service. The zero value is usable.
type Options struct {
	Hub     *live.Hub
	Metrics *metrics.Metrics

	// Now is the clock used to date new reports.
	Now func() time.Time

	// CopyAttempts bounds how often the user copy write is tried before the
	// report is rolled back.
	CopyAttempts        int
	CopyInitialInterval time.Duration
}

// Service implements the item views and the report write.
type Service struct {
	store   Store
	hub     *live.Hub
	metrics *metrics.Metrics
	now     func() time.Time

	copyAttempts        int
	copyInitialInterval time.Duration

	wg sync.WaitGroup
}

// New creates a facade over st.
func New(st Store, opts Options) *Service {
	s := &Service{
		store:               st,
		hub:                 opts.Hub,
		metrics:             opts.Metrics,
		now:                 opts.Now,
		copyAttempts:        opts.CopyAttempts,
		copyInitialInterval: opts.CopyInitialInterval,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.copyAttempts <= 0 {
		s.copyAttempts = DefaultCopyAttempts
	}
	if s.copyInitialInterval <= 0 {
		s.copyInitialInterval = DefaultCopyInitialInterval
	}
	return s
}

// ListAll returns every item in the catalog.
func (s *Service) ListAll(ctx context.Context) ([]model.Item, error) {
	return s.list(ctx, "")
}

// ListByStatus returns the items with the given status. A status other than
// lost or found matches nothing.
func (s *Service) ListByStatus(ctx context.Context, status model.Status) ([]model.Item, error) {
	if status == "" {
		return []model.Item{}, nil
	}
	return s.list(ctx, status)
}

// List returns the items selected by f.
func (s *Service) List(ctx context.Context, f model.Filter) ([]model.Item, error) {
	if f.All() {
		return s.ListAll(ctx)
	}
	return s.ListByStatus(ctx, f.Status)
}

func (s *Service) list(ctx context.Context, status model.Status) ([]model.Item, error) {
	items, err := s.store.ListItems(ctx, status)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Subscribe opens a live view for f. The caller must close the subscription.
func (s *Service) Subscribe(ctx context.Context, f model.Filter) (*live.Subscription, error) {
	if s.hub == nil {
		return nil, ErrNoLiveHub
	}
	return s.hub.Subscribe(ctx, f)
}

// ListMine returns the caller's own copies of the items they reported.
func (s *Service) ListMine(ctx context.Context, session *auth.Session) ([]model.Item, error) {
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	items, err := s.store.ListUserItems(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Get returns one item, or nil if it does not exist.
func (s *Service) Get(ctx context.Context, id string) (*model.Item, error) {
	return s.store.GetItem(ctx, id)
}

// Image returns an item's uploaded photo. data is nil when the item has none.
func (s *Service) Image(ctx context.Context, id string) (data []byte, mime string, err error) {
	return s.store.GetItemImage(ctx, id)
}

// Wait blocks until every report in flight has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
