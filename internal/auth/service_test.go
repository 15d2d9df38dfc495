package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/najdisce/internal/db"
	"github.com/erazemk/najdisce/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(db.NewTestDB(t), "test-secret")
}

func TestSignUpWritesProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, "a@b.com", "password1", "Jane")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if session.UserID == "" || session.Token == "" {
		t.Fatalf("expected session with user id and token, got %+v", session)
	}

	user, err := store.GetUser(ctx, svc.DB, session.UserID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user == nil {
		t.Fatal("expected profile document after sign-up")
	}
	if user.Name != "Jane" {
		t.Errorf("expected name 'Jane', got %q", user.Name)
	}
	if user.Email != "a@b.com" {
		t.Errorf("expected email 'a@b.com', got %q", user.Email)
	}
	if user.IsAdmin {
		t.Error("expected isAdmin false")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "a@b.com", "password1", "Jane"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	_, err := svc.SignUp(ctx, "A@B.com ", "password2", "Other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	users, _ := store.ListUsers(ctx, svc.DB)
	if len(users) != 1 {
		t.Errorf("expected no profile for rejected sign-up, got %d users", len(users))
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"bad email", "not-an-email", "password1"},
		{"empty email", "", "password1"},
		{"short password", "a@b.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.email, tt.password, "x"); err == nil {
				t.Error("expected error")
			}
		})
	}

	users, _ := store.ListUsers(ctx, svc.DB)
	if len(users) != 0 {
		t.Errorf("expected no profiles after failed sign-ups, got %d", len(users))
	}
}

func TestSignInWithPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	signedUp, _ := svc.SignUp(ctx, "a@b.com", "password1", "Jane")

	session, err := svc.SignInWithPassword(ctx, "a@b.com", "password1")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if session.UserID != signedUp.UserID {
		t.Errorf("expected same user id, got %q and %q", session.UserID, signedUp.UserID)
	}
	if session.Name != "Jane" {
		t.Errorf("expected name 'Jane' in session, got %q", session.Name)
	}

	if _, err := svc.SignInWithPassword(ctx, "a@b.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.SignInWithPassword(ctx, "nobody@b.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignInAnonymously(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously: %v", err)
	}
	second, err := svc.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously: %v", err)
	}

	if !first.Anonymous {
		t.Error("expected anonymous session")
	}
	if first.UserID == second.UserID {
		t.Error("expected distinct guest accounts")
	}

	user, _ := store.GetUser(ctx, svc.DB, first.UserID)
	if user == nil || user.Name != GuestName {
		t.Errorf("expected guest profile, got %+v", user)
	}
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, _ := svc.SignUp(ctx, "a@b.com", "password1", "Jane")

	got, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.UserID != session.UserID {
		t.Errorf("expected user %q, got %q", session.UserID, got.UserID)
	}

	if err := svc.Logout(ctx, got); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked after logout, got %v", err)
	}
}
