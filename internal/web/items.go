package web

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/view"
)

// homeRecent is how many items the home page shows.
const homeRecent = 8

// tabView is one browse tab with its loaded items.
type tabView struct {
	view.Tab
	Items []model.Item
	Err   string
}

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	items, err := s.Reports.ListAll(r.Context())
	var loadErr string
	if err != nil {
		slog.Error("failed to list items for home page", "error", err)
		loadErr = "Could not load the latest items."
	}
	if len(items) > homeRecent {
		items = items[:homeRecent]
	}

	s.Templates.Render(w, "home.html", &struct {
		PageData
		Items   []model.Item
		LoadErr string
	}{
		PageData: s.page(w, r, "Najdišče"),
		Items:    items,
		LoadErr:  loadErr,
	})
}

// ItemsPage handles GET /items. All three views are loaded at once so
// switching tabs needs no round trip; a view that fails shows its own error.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	browse := view.ParseBrowse(r.URL.Query())
	tabs := browse.Tabs()
	views := make([]tabView, len(tabs))

	var g errgroup.Group
	for i, tab := range tabs {
		views[i].Tab = tab
		g.Go(func() error {
			items, err := s.Reports.List(r.Context(), tab.Filter)
			if err != nil {
				slog.Error("failed to load items view", "filter", tab.Filter.String(), "error", err)
				views[i].Err = "Could not load " + tab.Label + " items."
				return nil
			}
			views[i].Items = items
			return nil
		})
	}
	g.Wait()

	var active tabView
	for _, v := range views {
		if v.Active {
			active = v
		}
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		Tabs   []tabView
		Active tabView
	}{
		PageData: s.page(w, r, browse.Title()),
		Tabs:     views,
		Active:   active,
	})
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item, err := s.Reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get item", "item", r.PathValue("id"), "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Could not load this item.")
		return
	}
	if item == nil {
		s.renderError(w, r, http.StatusNotFound, "This item does not exist.")
		return
	}

	session := GetSession(r.Context())
	s.Templates.Render(w, "item_detail.html", &struct {
		PageData
		Item  *model.Item
		Owned bool
	}{
		PageData: s.page(w, r, item.Name),
		Item:     item,
		Owned:    session != nil && session.UserID == item.UserID,
	})
}

// ItemImage handles GET /items/{id}/image.
func (s *Server) ItemImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := s.Reports.Image(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get image", "item", r.PathValue("id"), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

// MyItemsPage handles GET /my-items.
func (s *Server) MyItemsPage(w http.ResponseWriter, r *http.Request) {
	items, err := s.Reports.ListMine(r.Context(), GetSession(r.Context()))
	var loadErr string
	if err != nil {
		slog.Error("failed to list user items", "error", err)
		loadErr = "Could not load your reports."
	}

	s.Templates.Render(w, "my_items.html", &struct {
		PageData
		Items   []model.Item
		LoadErr string
	}{
		PageData: s.page(w, r, "My Reports"),
		Items:    items,
		LoadErr:  loadErr,
	})
}
