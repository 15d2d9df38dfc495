package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/imaging"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/report"
	"github.com/erazemk/najdisce/internal/view"
	webembed "github.com/erazemk/najdisce/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"statusName": func(s model.Status) string {
			switch s {
			case model.StatusLost:
				return "Lost"
			case model.StatusFound:
				return "Found"
			default:
				return string(s)
			}
		},
		"categoryName": func(c model.Category) string {
			if c == "" {
				return ""
			}
			return strings.ToUpper(string(c[:1])) + string(c[1:])
		},
		"formatDate": func(date string) string {
			t, err := time.Parse(model.DateLayout, date)
			if err != nil {
				return date
			}
			return t.Format("January 2, 2006")
		},
		"itemsHref": view.ItemsHref,
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	// Read layout.
	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"home.html",
		"items.html",
		"item_detail.html",
		"report.html",
		"my_items.html",
		"login.html",
		"signup.html",
		"error.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	Session *auth.Session
	Nav     []view.NavLink
	Flash   *Flash
	Error   string
}

// Server holds all dependencies for page handlers.
type Server struct {
	Auth      *auth.Service
	Reports   *report.Service
	Templates *Templates
	Metrics   *metrics.Metrics
	Images    imaging.Options

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// page builds the base page data for r.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title:   title,
		Session: GetSession(r.Context()),
		Nav:     view.NavLinks(r.URL.Path, r.URL.Query()),
		Flash:   popFlash(w, r),
	}
}

// renderError renders the error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := s.page(w, r, http.StatusText(status))
	data.Error = message
	s.Templates.RenderStatus(w, status, "error.html", &data)
}
