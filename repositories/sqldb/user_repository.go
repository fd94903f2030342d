package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/websecurity/models"
	"github.com/upb/websecurity/repositories"
	"go.uber.org/zap"
)

const userColumns = `id, username, password_hash, is_superuser, disabled, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, is_superuser, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.IsSuperuser,
		user.Disabled,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("username", user.Username))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username)
}

// GetActiveByUsername retrieves an enabled user by username
func (r *UserRepository) GetActiveByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND disabled = $2`
	return r.getOne(ctx, query, username, false)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user := &models.User{}

	err := executor.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsSuperuser,
		&user.Disabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %v: %w", args[0], repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Permissions lists the permission names granted to a user
func (r *UserRepository) Permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `SELECT perm_name FROM permissions WHERE user_id = $1 ORDER BY perm_name`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return perms, nil
}

// AddPermission grants a permission to a user
func (r *UserRepository) AddPermission(ctx context.Context, userID uuid.UUID, permission string) error {
	query := `
		INSERT INTO permissions (user_id, perm_name)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, userID, permission); err != nil {
		return fmt.Errorf("failed to add permission: %w", err)
	}

	r.logger.Debug("permission granted",
		zap.String("user_id", userID.String()),
		zap.String("permission", permission))
	return nil
}

// RemovePermission revokes a permission from a user
func (r *UserRepository) RemovePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	query := `DELETE FROM permissions WHERE user_id = $1 AND perm_name = $2`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, userID, permission); err != nil {
		return fmt.Errorf("failed to remove permission: %w", err)
	}
	return nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET password_hash = $1,
		    is_superuser = $2,
		    disabled = $3,
		    updated_at = $4
		WHERE id = $5
	`

	user.UpdatedAt = time.Now().UTC()

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.PasswordHash,
		user.IsSuperuser,
		user.Disabled,
		user.UpdatedAt,
		user.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, repositories.ErrNotFound)
	}

	r.logger.Debug("user updated", zap.String("id", user.ID.String()))
	return nil
}

// Delete deletes a user. Permissions go with it.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)

	// sqlite only cascades with foreign_keys enabled on the connection
	if _, err := executor.ExecContext(ctx, `DELETE FROM permissions WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}

	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("user deleted", zap.String("id", id.String()))
	return nil
}
