package types

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	// StatusUnverified is assigned at registration. Unverified accounts can
	// log in and use the system.
	StatusUnverified UserStatus = "unverified"

	// StatusActive is reached through confirmation or unblocking.
	StatusActive UserStatus = "active"

	// StatusBlocked accounts cannot log in and lose any open session on
	// their next request.
	StatusBlocked UserStatus = "blocked"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusUnverified, StatusActive, StatusBlocked:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user, assigned at registration.
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the login key. It is unique across all users and stored
	// exactly as entered.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Status is the current lifecycle state.
	Status UserStatus `json:"status" db:"status"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// LastLoginAt is the timestamp of the most recent successful login,
	// nil if the user never logged in.
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// IsBlocked reports whether the account is blocked.
func (u User) IsBlocked() bool {
	return u.Status == StatusBlocked
}
