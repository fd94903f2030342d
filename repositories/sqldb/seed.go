package sqldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/websecurity/models"
	"github.com/upb/websecurity/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedUser describes an account created by Seed
type SeedUser struct {
	Username    string
	Superuser   bool
	Disabled    bool
	Permissions []string
}

// DemoUsers are the accounts of the database-backed demo
var DemoUsers = []SeedUser{
	{Username: "admin", Superuser: true},
	{Username: "moderator", Permissions: []string{"protected", "public"}},
	{Username: "user", Permissions: []string{"public"}},
}

// Seed creates the given users, all sharing password, in one transaction.
// Existing usernames are left untouched.
func Seed(ctx context.Context, tm repositories.TransactionManager, users repositories.UserRepository, seed []SeedUser, password string, logger *zap.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	return tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		for _, su := range seed {
			_, err := users.GetByUsername(ctx, su.Username)
			if err == nil {
				logger.Debug("seed user exists", zap.String("username", su.Username))
				continue
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}

			user := models.NewUser(su.Username, string(hash))
			user.IsSuperuser = su.Superuser
			user.Disabled = su.Disabled
			if err := users.Create(ctx, user); err != nil {
				return err
			}
			for _, perm := range su.Permissions {
				if err := users.AddPermission(ctx, user.ID, perm); err != nil {
					return err
				}
			}
			logger.Info("seeded user",
				zap.String("username", su.Username),
				zap.Bool("superuser", su.Superuser),
				zap.Strings("permissions", su.Permissions))
		}
		return nil
	})
}
