package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/metrics"
	"github.com/erazemk/najdisce/internal/model"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	Auth    *auth.Service
	Metrics *metrics.Metrics
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionUser struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name"`
	Anonymous bool   `json:"anonymous"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      sessionUser `json:"user"`
}

func newSessionResponse(s *auth.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User: sessionUser{
			ID:        s.UserID,
			Email:     s.Email,
			Name:      s.Name,
			Anonymous: s.Anonymous,
		},
	}
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Auth.SignUp(r.Context(), req.Email, req.Password, req.Name)
	h.Metrics.SignIn("signup", err)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		jsonError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, model.ErrPasswordTooShort):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("sign-up failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	jsonResponse(w, http.StatusCreated, newSessionResponse(session))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	session, err := h.Auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	h.Metrics.SignIn("password", err)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, newSessionResponse(session))
}

// Guest handles POST /api/auth/guest.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	session, err := h.Auth.SignInAnonymously(r.Context())
	h.Metrics.SignIn("anonymous", err)
	if err != nil {
		slog.Error("guest sign-in failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to sign in as guest")
		return
	}

	jsonResponse(w, http.StatusCreated, newSessionResponse(session))
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	if session == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Auth.Logout(r.Context(), session); err != nil {
		slog.Error("failed to revoke token", "user", session.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
