package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/websecurity/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user and permission data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by username, disabled or not
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetActiveByUsername retrieves an enabled user by username.
	// Disabled users yield ErrNotFound.
	GetActiveByUsername(ctx context.Context, username string) (*models.User, error)

	// Permissions lists the permission names granted to a user
	Permissions(ctx context.Context, userID uuid.UUID) ([]string, error)

	// AddPermission grants a permission; granting twice is a no-op
	AddPermission(ctx context.Context, userID uuid.UUID, permission string) error

	// RemovePermission revokes a permission
	RemovePermission(ctx context.Context, userID uuid.UUID, permission string) error

	// Update updates a user's flags and password hash
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user and their permissions
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users UserRepository
}
