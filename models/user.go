package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account known to the database authorization policy
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username" validate:"required,max=255"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	Disabled     bool      `json:"disabled" db:"disabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new enabled, non-superuser User
func NewUser(username, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Active reports whether the user may authenticate
func (u *User) Active() bool {
	return !u.Disabled
}

// UserPermission grants a named permission to a user
type UserPermission struct {
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Permission string    `json:"permission" db:"perm_name" validate:"required,max=64"`
}

// TableName returns the table name for the UserPermission model
func (UserPermission) TableName() string {
	return "permissions"
}
