package web

import (
	"net/http"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/imaging"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/report"
	webembed "github.com/erazemk/najdisce/web"
)

// Options holds the optional parts of the web pages.
type Options struct {
	Metrics       *metrics.Metrics
	Images        imaging.Options
	SecureCookies bool
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(authSvc *auth.Service, reports *report.Service, opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Auth:          authSvc,
		Reports:       reports,
		Templates:     templates,
		Metrics:       opts.Metrics,
		Images:        opts.Images,
		SecureCookies: opts.SecureCookies,
	}

	mux := http.NewServeMux()

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Account.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /login/guest", s.GuestSubmit)
	mux.HandleFunc("GET /signup", s.SignupPage)
	mux.HandleFunc("POST /signup", s.SignupSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Catalog.
	mux.HandleFunc("GET /{$}", s.Home)
	mux.HandleFunc("GET /items", s.ItemsPage)
	mux.HandleFunc("GET /items/{id}", s.ItemDetailPage)
	mux.HandleFunc("GET /items/{id}/image", s.ItemImage)

	// Reporting. The submit handler answers missing sessions itself.
	mux.HandleFunc("GET /report", s.ReportPage)
	mux.HandleFunc("POST /report", s.ReportSubmit)
	mux.Handle("GET /my-items", RequireSession(http.HandlerFunc(s.MyItemsPage)))

	return SessionMiddleware(authSvc)(mux), nil
}
