package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/store"
)

// Errors returned by the authentication service.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrSessionRevoked     = errors.New("session has been revoked")
)

// GuestName is the profile name given to anonymous sessions.
const GuestName = "Guest"

// Session is an authenticated caller. It is passed explicitly to every
// operation that acts on behalf of a user.
type Session struct {
	UserID    string
	Email     string
	Name      string
	Anonymous bool
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// Service signs users up and in and manages their session tokens.
type Service struct {
	DB        *sql.DB
	JWTSecret string
}

// NewService creates an authentication service.
func NewService(db *sql.DB, jwtSecret string) *Service {
	return &Service{DB: db, JWTSecret: jwtSecret}
}

// SignUp creates a password credential and then writes the user's profile.
// The profile is only written once the credential exists and has an id.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	cred, err := store.CreateCredential(ctx, s.DB, uuid.NewString(), email, string(hash), false)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	noImage := ""
	notAdmin := false
	user, err := store.MergeUser(ctx, s.DB, cred.ID, model.Profile{
		Name:            &name,
		Email:           &cred.Email,
		ProfileImageURL: &noImage,
		IsAdmin:         &notAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("writing profile: %w", err)
	}

	slog.Info("user signed up", "user", user.ID, "email", user.Email)
	return s.issue(user, false)
}

// SignInWithPassword starts a session for an existing password credential.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	cred, err := store.GetCredentialByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.DisabledAt != nil || cred.Anonymous {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	user, err := store.GetUser(ctx, s.DB, cred.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Account created but the profile write never happened; recreate it.
		user, err = store.MergeUser(ctx, s.DB, cred.ID, model.Profile{Email: &cred.Email})
		if err != nil {
			return nil, fmt.Errorf("restoring profile: %w", err)
		}
	}

	slog.Info("user logged in", "user", user.ID)
	return s.issue(user, false)
}

// SignInAnonymously creates a guest account with its profile and starts a
// session for it.
func (s *Service) SignInAnonymously(ctx context.Context) (*Session, error) {
	cred, err := store.CreateCredential(ctx, s.DB, uuid.NewString(), "", "", true)
	if err != nil {
		return nil, err
	}

	name := GuestName
	user, err := store.MergeUser(ctx, s.DB, cred.ID, model.Profile{Name: &name})
	if err != nil {
		return nil, fmt.Errorf("writing guest profile: %w", err)
	}

	slog.Info("guest signed in", "user", user.ID)
	return s.issue(user, true)
}

// Authenticate validates a token and checks that it has not been revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := ValidateToken(s.JWTSecret, token)
	if err != nil {
		return nil, err
	}

	if claims.ID != "" {
		revoked, err := store.IsTokenRevoked(ctx, s.DB, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrSessionRevoked
		}
	}

	return claims.Session(token), nil
}

// Logout revokes the session's token.
func (s *Service) Logout(ctx context.Context, session *Session) error {
	if session == nil || session.TokenID == "" {
		return nil
	}
	if err := store.RevokeToken(ctx, s.DB, session.TokenID, session.ExpiresAt); err != nil {
		return err
	}
	slog.Info("user logged out", "user", session.UserID)
	return nil
}

func (s *Service) issue(user *model.User, anonymous bool) (*Session, error) {
	session := Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Anonymous: anonymous,
	}

	token, err := GenerateToken(s.JWTSecret, session)
	if err != nil {
		return nil, err
	}

	claims, err := ValidateToken(s.JWTSecret, token)
	if err != nil {
		return nil, err
	}
	return claims.Session(token), nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
