package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/najdisce/internal/model"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("already exists")

// CreateCredential creates an authentication record. Anonymous credentials
// are stored without email and password.
func CreateCredential(ctx context.Context, db *sql.DB, id, email, passwordHash string, anonymous bool) (*model.Credential, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO credentials (id, email, password_hash, anonymous) VALUES (?, ?, ?, ?)`,
		id, nullString(email), nullString(passwordHash), anonymous,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("creating credential: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("creating credential: %w", err)
	}

	return GetCredential(ctx, db, id)
}

// GetCredential returns a credential by ID.
func GetCredential(ctx context.Context, db *sql.DB, id string) (*model.Credential, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, anonymous, created_at, disabled_at
		 FROM credentials WHERE id = ?`, id,
	)
	c, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential: %w", err)
	}
	return c, nil
}

// GetCredentialByEmail returns a credential by email (including disabled ones for auth checks).
func GetCredentialByEmail(ctx context.Context, db *sql.DB, email string) (*model.Credential, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, anonymous, created_at, disabled_at
		 FROM credentials WHERE email = ?`, email,
	)
	c, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential by email: %w", err)
	}
	return c, nil
}

// MergeUser creates or updates a user profile. Only the non-nil fields of p
// are written; everything else keeps its stored value.
func MergeUser(ctx context.Context, db *sql.DB, id string, p model.Profile) (*model.User, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, profile_image_url, is_admin)
		 VALUES (?1, COALESCE(?2, ''), COALESCE(?3, ''), COALESCE(?4, ''), COALESCE(?5, 0))
		 ON CONFLICT (id) DO UPDATE SET
		     name              = COALESCE(?2, name),
		     email             = COALESCE(?3, email),
		     profile_image_url = COALESCE(?4, profile_image_url),
		     is_admin          = COALESCE(?5, is_admin),
		     updated_at        = CURRENT_TIMESTAMP`,
		id, p.Name, p.Email, p.ProfileImageURL, p.IsAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("merging user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user profile by ID.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	u := &model.User{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, email, profile_image_url, is_admin, created_at, updated_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.ProfileImageURL, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ListUsers returns all user profiles.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, email, profile_image_url, is_admin, created_at, updated_at
		 FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ProfileImageURL, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanCredential(s scanner) (*model.Credential, error) {
	c := &model.Credential{}
	var email, hash sql.NullString
	err := s.Scan(&c.ID, &email, &hash, &c.Anonymous, &c.CreatedAt, &c.DisabledAt)
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.PasswordHash = hash.String
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
