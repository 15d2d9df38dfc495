package web

import (
	"context"
	"net/http"

	"github.com/erazemk/najdisce/internal/auth"
)

type webContextKey string

const webSessionKey webContextKey = "websession"

const tokenCookie = "token"

// SessionMiddleware reads the session cookie and adds the session to the
// context. Pages are public, so requests without a valid session pass
// through without one; a stale or revoked cookie is cleared.
func SessionMiddleware(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(tokenCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := svc.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				clearAuthCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), webSessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession redirects to the login page when there is no session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSession(r.Context()) == nil {
			setFlash(w, Flash{Kind: FlashError, Title: "Not Logged In", Message: "Log in to see this page."})
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession retrieves the session from web context, or nil.
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(webSessionKey).(*auth.Session)
	return session
}

func (s *Server) setAuthCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
