package model

import (
	"fmt"
	"time"
)

// User is the profile document kept for every account, including guests.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profileImageUrl"`
	IsAdmin         bool      `json:"isAdmin"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Profile is a merge-write update of a User. Nil fields are left untouched.
type Profile struct {
	Name            *string
	Email           *string
	ProfileImageURL *string
	IsAdmin         *bool
}

// Credential is the authentication record behind a User.
// Anonymous credentials have no email and no password.
type Credential struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Anonymous    bool       `json:"anonymous"`
	CreatedAt    time.Time  `json:"createdAt"`
	DisabledAt   *time.Time `json:"disabledAt,omitempty"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned for passwords below MinPasswordLength.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
