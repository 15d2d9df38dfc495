package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/imaging"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/report"
)

// Options holds the optional parts of the API.
type Options struct {
	Metrics *metrics.Metrics
	Images  imaging.Options

	// CheckOrigin validates websocket origins. Nil accepts same-origin
	// requests only.
	CheckOrigin func(r *http.Request) bool
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(authSvc *auth.Service, reports *report.Service, opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Auth: authSvc, Metrics: opts.Metrics}
	itemsHandler := &ItemsHandler{Reports: reports, Images: opts.Images}
	liveHandler := &LiveHandler{
		Reports:  reports,
		Upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
	}

	authMW := AuthMiddleware(authSvc)
	optionalAuth := OptionalAuth(authSvc)

	// Public: sign-up and sign-in.
	mux.HandleFunc("POST /api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/guest", authHandler.Guest)
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Catalog: read by anyone, report when signed in.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/live", liveHandler.Stream)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/image", itemsHandler.GetImage)
	mux.Handle("POST /api/items", optionalAuth(http.HandlerFunc(itemsHandler.Create)))

	// The caller's own reports.
	mux.Handle("GET /api/me/items", authMW(http.HandlerFunc(itemsHandler.Mine)))

	return mux
}

// HealthHandler reports whether the database is reachable.
func HealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
