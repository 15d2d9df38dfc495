package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdisce/internal/imaging"
	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/report"
	"github.com/erazemk/najdisce/internal/view"
)

// ItemsHandler handles the item catalog endpoints.
type ItemsHandler struct {
	Reports *report.Service
	Images  imaging.Options
}

type createItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	Status      string `json:"status"`
}

func (req createItemRequest) input() report.Input {
	return report.Input{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Category:    model.Category(req.Category),
		Status:      model.Status(req.Status),
	}
}

// List handles GET /api/items. Without a type every item is listed; with one
// only items of exactly that status are, so an unknown type lists nothing.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var items []model.Item
	var err error

	if status := r.URL.Query().Get(view.TypeParam); status != "" {
		items, err = h.Reports.ListByStatus(r.Context(), model.Status(status))
	} else {
		items, err = h.Reports.ListAll(r.Context())
	}
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get item", "item", r.PathValue("id"), "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items. The body is either JSON or a multipart
// form with the same fields and an optional "image" file.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	if session == nil {
		jsonError(w, http.StatusUnauthorized, report.ErrNotAuthenticated.Error())
		return
	}

	var in report.Input
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		photo, err := imaging.FromRequest(w, r, "image", h.Images)
		switch {
		case errors.Is(err, imaging.ErrTooLarge):
			jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		case errors.Is(err, imaging.ErrUnsupported):
			jsonError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		case err != nil:
			jsonError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		in = createItemRequest{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Location:    r.FormValue("location"),
			Category:    r.FormValue("category"),
			Status:      r.FormValue("status"),
		}.input()
		in.Photo = photo
	} else {
		var req createItemRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in = req.input()
	}

	pending := h.Reports.Report(r.Context(), session, in)
	item, err := pending.Wait(r.Context())

	var verr report.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonFieldErrors(w, verr)
	case errors.Is(err, report.ErrNotAuthenticated):
		jsonError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.Canceled):
		slog.Warn("client left before report finished", "item", pending.ID(), "user", session.UserID)
	case err != nil:
		jsonError(w, http.StatusInternalServerError, report.ErrReportFailed.Error())
	default:
		w.Header().Set("Location", "/api/items/"+item.ID)
		jsonResponse(w, http.StatusCreated, item)
	}
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	serveImage(w, r, h.Reports, r.PathValue("id"))
}

// Mine handles GET /api/me/items.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.Reports.ListMine(r.Context(), GetSession(r.Context()))
	if errors.Is(err, report.ErrNotAuthenticated) {
		jsonError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to list user items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// serveImage writes an item's stored photo.
func serveImage(w http.ResponseWriter, r *http.Request, reports *report.Service, id string) {
	data, mime, err := reports.Image(r.Context(), id)
	if err != nil {
		slog.Error("failed to get image", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
