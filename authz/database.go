package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/upb/websecurity/repositories"
	"github.com/upb/websecurity/security"
	"go.uber.org/zap"
)

// DatabasePolicy authorizes against the users and permissions tables.
// Disabled users are unknown. Superusers hold every permission.
type DatabasePolicy struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewDatabasePolicy creates a database-backed authorization policy
func NewDatabasePolicy(users repositories.UserRepository, logger *zap.Logger) *DatabasePolicy {
	return &DatabasePolicy{
		users:  users,
		logger: logger,
	}
}

// AuthorizedUserID returns the user's UUID for an enabled user named by identity
func (p *DatabasePolicy) AuthorizedUserID(ctx context.Context, identity security.Identity) (security.UserID, bool, error) {
	if identity.IsAnonymous() {
		return "", false, nil
	}

	user, err := p.users.GetActiveByUsername(ctx, identity.String())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve user: %w", err)
	}

	return security.UserID(user.ID.String()), true, nil
}

// Permits reports whether the enabled user named by identity holds permission.
// Lookup failures are logged and deny.
func (p *DatabasePolicy) Permits(ctx context.Context, identity security.Identity, permission security.Permission, pctx any) bool {
	if identity.IsAnonymous() {
		return false
	}

	user, err := p.users.GetActiveByUsername(ctx, identity.String())
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			p.logger.Error("permission lookup failed",
				zap.String("identity", identity.String()),
				zap.String("permission", string(permission)),
				zap.Error(err))
		}
		return false
	}

	if user.IsSuperuser {
		return true
	}

	perms, err := p.users.Permissions(ctx, user.ID)
	if err != nil {
		p.logger.Error("permission lookup failed",
			zap.String("user_id", user.ID.String()),
			zap.String("permission", string(permission)),
			zap.Error(err))
		return false
	}

	return slices.Contains(perms, string(permission))
}
