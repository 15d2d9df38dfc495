package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/imaging"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/model"
)

// Input is a new report as submitted by the user.
type Input struct {
	Name        string
	Description string
	Location    string
	Category    model.Category
	Status      model.Status

	// Photo is optional. Without one the placeholder image is used.
	Photo *imaging.Photo
}

// ValidationError maps form fields to what is wrong with them.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, field+": "+e[field])
	}
	return "invalid report: " + strings.Join(msgs, "; ")
}

// Validate trims the text fields and checks that every required field is set.
func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	errs := ValidationError{}
	if !in.Status.Valid() {
		errs["status"] = "select whether the item is lost or found"
	}
	if !in.Category.Valid() {
		errs["category"] = "select a category"
	}
	if in.Name == "" {
		errs["name"] = "name is required"
	}
	if in.Description == "" {
		errs["description"] = "description is required"
	}
	if in.Location == "" {
		errs["location"] = "location is required"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Pending is a report being written. Its id is known before the write
// finishes.
type Pending struct {
	id   string
	done chan struct{}
	item *model.Item
	err  error
}

// ID returns the id the item is written under. It is empty when the report
// was rejected before any write.
func (p *Pending) ID() string {
	return p.id
}

// Done is closed when the report has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the report has finished or ctx is done. Giving up on the
// wait does not cancel the report.
func (p *Pending) Wait(ctx context.Context) (*model.Item, error) {
	select {
	case <-p.done:
		return p.item, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) finish(item *model.Item, err error) *Pending {
	p.item, p.err = item, err
	close(p.done)
	return p
}

// Report writes a new item to the global collection and the reporter's own
// list. Both copies share one id.
//
// The user copy is retried with backoff. If it still cannot be written the
// global item is deleted again and the report fails with ErrReportFailed.
// The write continues in the background when ctx is canceled.
func (s *Service) Report(ctx context.Context, session *auth.Session, in Input) *Pending {
	p := &Pending{done: make(chan struct{})}

	if session == nil {
		s.metrics.Report(statusLabel(in.Status), metrics.ReportRejected)
		return p.finish(nil, ErrNotAuthenticated)
	}
	if err := in.Validate(); err != nil {
		s.metrics.Report(statusLabel(in.Status), metrics.ReportRejected)
		return p.finish(nil, err)
	}

	p.id = uuid.NewString()
	item := model.Item{
		ID:          p.id,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Status:      in.Status,
		Location:    in.Location,
		Date:        s.now().UTC().Format(model.DateLayout),
		ImageURL:    model.PlaceholderImageURL,
		ImageHint:   model.PlaceholderImageHint,
		UserID:      session.UserID,
	}

	var image []byte
	var mime string
	if in.Photo != nil && len(in.Photo.Data) > 0 {
		item.ImageURL = "/items/" + p.id + "/image"
		item.ImageHint = strings.ToLower(in.Name)
		image, mime = in.Photo.Data, in.Photo.MIME
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p.finish(s.write(ctx, item, image, mime))
	}()

	return p
}

// statusLabel keeps the metrics status label to a fixed set, whatever the
// client sent.
func statusLabel(status model.Status) string {
	if !status.Valid() {
		return "invalid"
	}
	return string(status)
}

func (s *Service) write(ctx context.Context, item model.Item, image []byte, mime string) (*model.Item, error) {
	status := string(item.Status)

	if err := s.store.InsertItem(ctx, item, image, mime); err != nil {
		slog.Error("failed to write item", "item", item.ID, "user", item.UserID, "error", err)
		s.metrics.Report(status, metrics.ReportRolledBack)
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.copyInitialInterval
	b.MaxElapsedTime = 0

	copyErr := backoff.RetryNotify(
		func() error { return s.store.InsertUserItem(ctx, item) },
		backoff.WithMaxRetries(b, uint64(s.copyAttempts-1)),
		func(err error, wait time.Duration) {
			s.metrics.CopyRetry()
			slog.Warn("retrying user item copy", "item", item.ID, "user", item.UserID, "wait", wait, "error", err)
		},
	)
	if copyErr != nil {
		slog.Error("failed to write user item copy, rolling back", "item", item.ID, "user", item.UserID, "error", copyErr)

		if err := s.store.DeleteItem(ctx, item.ID); err != nil {
			slog.Error("failed to roll back item", "item", item.ID, "user", item.UserID, "error", err)
			sentry.CaptureException(fmt.Errorf("item %s has no user copy and could not be removed: %w", item.ID, err))
			s.metrics.Report(status, metrics.ReportOrphaned)
		} else {
			s.metrics.Report(status, metrics.ReportRolledBack)
		}
		return nil, fmt.Errorf("%w: %v", ErrReportFailed, copyErr)
	}

	if stored, err := s.store.GetItem(ctx, item.ID); err == nil && stored != nil {
		item = *stored
	}

	s.metrics.Report(status, metrics.ReportOK)
	slog.Info("item reported", "item", item.ID, "user", item.UserID, "status", status)

	if s.hub != nil {
		s.hub.Notify(ctx)
	}
	return &item, nil
}
