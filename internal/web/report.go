package web

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

// reportForm is the report page with the submitted values and what is wrong
// with them.
type reportForm struct {
	PageData
	Statuses    []model.Status
	Categories  []model.Category
	Status      model.Status
	Category    model.Category
	Name        string
	Description string
	Location    string
	Errors      map[string]string
}

func (s *Server) reportForm(w http.ResponseWriter, r *http.Request) *reportForm {
	return &reportForm{
		PageData:   s.page(w, r, "Report an Item"),
		Statuses:   model.Statuses,
		Categories: model.Categories,
	}
}

// ReportPage handles GET /report. The type parameter pre-selects the status.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	form := s.reportForm(w, r)
	form.Status = view.ParseReport(r.URL.Query())
	s.Templates.Render(w, "report.html", form)
}

// ReportSubmit handles POST /report.
func (s *Server) ReportSubmit(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	if session == nil {
		s.notLoggedIn(w, r)
		return
	}

	var photo *imaging.Photo
	var photoErr error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		photo, photoErr = imaging.FromRequest(w, r, "image", s.Images)
	}

	in := report.Input{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Category:    model.Category(r.FormValue("category")),
		Status:      model.Status(r.FormValue("status")),
		Photo:       photo,
	}

	form := s.reportForm(w, r)
	form.Status = in.Status
	form.Category = in.Category
	form.Name = in.Name
	form.Description = in.Description
	form.Location = in.Location

	if photoErr != nil {
		switch {
		case errors.Is(photoErr, imaging.ErrTooLarge), errors.Is(photoErr, imaging.ErrUnsupported):
			form.Errors = map[string]string{"image": photoErr.Error()}
		default:
			slog.Warn("invalid report upload", "user", session.UserID, "error", photoErr)
			form.Errors = map[string]string{"image": "The photo could not be read."}
		}
		s.Templates.RenderStatus(w, http.StatusBadRequest, "report.html", form)
		return
	}

	pending := s.Reports.Report(r.Context(), session, in)
	item, err := pending.Wait(r.Context())

	var verr report.ValidationError
	switch {
	case errors.As(err, &verr):
		form.Errors = verr
		s.Templates.RenderStatus(w, http.StatusBadRequest, "report.html", form)
	case errors.Is(err, report.ErrNotAuthenticated):
		s.notLoggedIn(w, r)
	case errors.Is(err, context.Canceled):
		slog.Warn("client left before report finished", "item", pending.ID(), "user", session.UserID)
	case err != nil:
		form.Flash = &Flash{Kind: FlashError, Title: "Uh oh! Something went wrong.", Message: "Your report could not be submitted. Please try again."}
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "report.html", form)
	default:
		setFlash(w, Flash{Kind: FlashSuccess, Title: "Report Submitted", Message: "Your item report has been successfully submitted."})
		http.Redirect(w, r, "/items/"+item.ID, http.StatusSeeOther)
	}
}

func (s *Server) notLoggedIn(w http.ResponseWriter, r *http.Request) {
	setFlash(w, Flash{Kind: FlashError, Title: "Not Logged In", Message: "You must be logged in to report an item."})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
