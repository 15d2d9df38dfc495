package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/model"
)

type authForm struct {
	PageData
	Email string
	Name  string
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &authForm{PageData: s.page(w, r, "Login")})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	form := &authForm{PageData: s.page(w, r, "Login"), Email: email}

	if email == "" || password == "" {
		form.Error = "Enter your email and password."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", form)
		return
	}

	session, err := s.Auth.SignInWithPassword(r.Context(), email, password)
	s.Metrics.SignIn("password", err)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		form.Error = "Invalid email or password."
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", form)
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		form.Error = "Something went wrong. Please try again."
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "login.html", form)
		return
	}

	s.setAuthCookie(w, session)
	setFlash(w, Flash{Kind: FlashSuccess, Title: "Logged In", Message: "Welcome back, " + session.Name + "."})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GuestSubmit handles POST /login/guest.
func (s *Server) GuestSubmit(w http.ResponseWriter, r *http.Request) {
	session, err := s.Auth.SignInAnonymously(r.Context())
	s.Metrics.SignIn("anonymous", err)
	if err != nil {
		slog.Error("guest sign-in failed", "error", err)
		setFlash(w, Flash{Kind: FlashError, Title: "Uh oh! Something went wrong.", Message: "Could not sign in as guest."})
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.setAuthCookie(w, session)
	setFlash(w, Flash{Kind: FlashSuccess, Title: "Logged In as Guest", Message: "You can now report items."})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignupPage handles GET /signup.
func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "signup.html", &authForm{PageData: s.page(w, r, "Sign Up")})
}

// SignupSubmit handles POST /signup.
func (s *Server) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	email := r.FormValue("email")
	password := r.FormValue("password")

	form := &authForm{PageData: s.page(w, r, "Sign Up"), Email: email, Name: name}

	session, err := s.Auth.SignUp(r.Context(), email, password, name)
	s.Metrics.SignIn("signup", err)
	switch {
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, model.ErrPasswordTooShort):
		form.Error = err.Error()
		s.Templates.RenderStatus(w, http.StatusBadRequest, "signup.html", form)
		return
	case err != nil:
		slog.Error("sign-up failed", "error", err)
		form.Error = "Something went wrong. Please try again."
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "signup.html", form)
		return
	}

	s.setAuthCookie(w, session)
	setFlash(w, Flash{Kind: FlashSuccess, Title: "Account Created!", Message: "You have been successfully signed up."})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if session := GetSession(r.Context()); session != nil {
		if err := s.Auth.Logout(r.Context(), session); err != nil {
			slog.Error("failed to revoke token", "user", session.UserID, "error", err)
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
