// Package models provides the persisted records of the packing audit system.
package models

import (
	"time"

	"github.com/packing-audit/internal/types"
)

// User represents an operator or administrator account
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	RoleID    string    `json:"role_id" db:"role_id"`
	RoleName  string    `json:"role_name,omitempty" db:"role_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Role represents a named permission set
type Role struct {
	ID          string         `json:"id" db:"id"`
	Name        types.RoleName `json:"name" db:"name"`
	Description *string        `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Session binds a hashed refresh token to a user
type Session struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	SessionToken string    `json:"-" db:"session_token"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
}

// IsExpired reports whether the session has passed its expiry at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
