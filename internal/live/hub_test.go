package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/erazemk/najdisce/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memSource is an in-memory item collection with a switchable failure.
type memSource struct {
	mu    sync.Mutex
	items []model.Item
	err   error
	loads int
}

func (s *memSource) add(item model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

func (s *memSource) load(_ context.Context, f model.Filter) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Item
	for _, item := range s.items {
		if f.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func next(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	src := &memSource{}
	src.add(model.Item{ID: "1", Status: model.StatusLost})
	src.add(model.Item{ID: "2", Status: model.StatusFound})

	hub := NewHub(src.load, nil)
	defer hub.Close()

	sub, err := hub.Subscribe(context.Background(), model.Filter{Status: model.StatusLost})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	ev := next(t, sub)
	if ev.Err != nil {
		t.Fatalf("unexpected error: %v", ev.Err)
	}
	if len(ev.Items) != 1 || ev.Items[0].ID != "1" {
		t.Errorf("expected only item 1, got %+v", ev.Items)
	}
}

func TestIdenticalFiltersShareQuery(t *testing.T) {
	src := &memSource{}
	hub := NewHub(src.load, nil)
	defer hub.Close()
	ctx := context.Background()

	a, _ := hub.Subscribe(ctx, model.Filter{Status: model.StatusLost})
	b, _ := hub.Subscribe(ctx, model.Filter{Status: model.StatusLost})
	c, _ := hub.Subscribe(ctx, model.Filter{})

	if a.Query() != b.Query() {
		t.Error("expected identical filters to reuse the same query handle")
	}
	if a.Query() == c.Query() {
		t.Error("expected different filters to use different query handles")
	}
	if hub.Len() != 2 {
		t.Errorf("expected 2 open queries, got %d", hub.Len())
	}

	first := a.Query()
	a.Close()
	if hub.Len() != 2 {
		t.Errorf("query should stay open while a subscriber remains, got %d queries", hub.Len())
	}
	b.Close()
	if hub.Len() != 1 {
		t.Errorf("expected lost query to be released, got %d queries", hub.Len())
	}

	d, _ := hub.Subscribe(ctx, model.Filter{Status: model.StatusLost})
	if d.Query() == first {
		t.Error("expected a fresh query after the previous one was released")
	}

	c.Close()
	d.Close()
	if hub.Len() != 0 {
		t.Errorf("expected no open queries, got %d", hub.Len())
	}
}

func TestNotifyPushesChanges(t *testing.T) {
	src := &memSource{}
	hub := NewHub(src.load, nil)
	defer hub.Close()

	all, _ := hub.Subscribe(context.Background(), model.Filter{})
	defer all.Close()
	found, _ := hub.Subscribe(context.Background(), model.Filter{Status: model.StatusFound})
	defer found.Close()

	if ev := next(t, all); len(ev.Items) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d items", len(ev.Items))
	}
	next(t, found)

	src.add(model.Item{ID: "1", Status: model.StatusLost})
	hub.Notify(context.Background())

	if ev := next(t, all); len(ev.Items) != 1 {
		t.Errorf("expected 1 item after notify, got %d", len(ev.Items))
	}
	if ev := next(t, found); len(ev.Items) != 0 {
		t.Errorf("expected found view to stay empty, got %d", len(ev.Items))
	}
}

func TestSlowSubscriberKeepsLatestSnapshot(t *testing.T) {
	src := &memSource{}
	hub := NewHub(src.load, nil)
	defer hub.Close()

	sub, _ := hub.Subscribe(context.Background(), model.Filter{})
	defer sub.Close()
	next(t, sub)

	for i := 0; i < 3; i++ {
		src.add(model.Item{ID: string(rune('a' + i)), Status: model.StatusLost})
		hub.Notify(context.Background())
	}

	ev := next(t, sub)
	if len(ev.Items) != 3 {
		t.Errorf("expected latest snapshot with 3 items, got %d", len(ev.Items))
	}
	select {
	case ev := <-sub.C():
		t.Errorf("expected stale snapshots to be dropped, got another with %d items", len(ev.Items))
	default:
	}
}

func TestLoadFailureIsDelivered(t *testing.T) {
	src := &memSource{err: errors.New("permission denied")}
	hub := NewHub(src.load, nil)
	defer hub.Close()

	sub, _ := hub.Subscribe(context.Background(), model.Filter{})
	defer sub.Close()

	ev := next(t, sub)
	if ev.Err == nil {
		t.Fatal("expected error event")
	}
	if ev.Items != nil {
		t.Errorf("expected no items with error, got %+v", ev.Items)
	}
}

func TestContextCancelClosesSubscription(t *testing.T) {
	src := &memSource{}
	hub := NewHub(src.load, nil)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := hub.Subscribe(ctx, model.Filter{})
	next(t, sub)

	cancel()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}

	// Close after cancel must be harmless.
	sub.Close()
	if hub.Len() != 0 {
		t.Errorf("expected query released, got %d", hub.Len())
	}
}

func TestHubClose(t *testing.T) {
	src := &memSource{}
	hub := NewHub(src.load, nil)

	sub, _ := hub.Subscribe(context.Background(), model.Filter{})
	hub.Close()

	for range sub.C() {
	}

	if _, err := hub.Subscribe(context.Background(), model.Filter{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
