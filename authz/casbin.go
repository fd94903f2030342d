package authz

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/upb/websecurity/security"
	"go.uber.org/zap"
)

//go:embed model.conf
var casbinModelContent string

// CasbinPolicy authorizes with a casbin RBAC enforcer. Policy subjects are
// identities or roles; permissions match with keyMatch, so "bike.*" grants
// every bike permission and "*" grants everything.
type CasbinPolicy struct {
	enforcer *casbin.SyncedEnforcer
	logger   *zap.Logger
}

// NewCasbinPolicy creates an enforcer from the embedded model. When
// policyPath is empty the enforcer starts with no rules.
func NewCasbinPolicy(policyPath string, logger *zap.Logger) (*CasbinPolicy, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if policyPath != "" {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	return &CasbinPolicy{enforcer: enforcer, logger: logger}, nil
}

// DemoCasbinPolicy returns a policy loaded with the demo roles
func DemoCasbinPolicy(logger *zap.Logger) (*CasbinPolicy, error) {
	p, err := NewCasbinPolicy("", logger)
	if err != nil {
		return nil, err
	}

	rules := [][]string{
		{"role:admin", "*"},
		{"role:moderator", "public"},
		{"role:moderator", "protected"},
		{"role:user", "public"},
		{"role:cyclist", "bike.read"},
		{"role:mechanic", "bike.*"},
	}
	assignments := [][]string{
		{"admin", "role:admin"},
		{"moderator", "role:moderator"},
		{"user", "role:user"},
		{"devin", "role:user"},
		{"devin", "role:cyclist"},
		{"jack", "role:moderator"},
		{"jack", "role:mechanic"},
	}

	if _, err := p.enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("add demo policies: %w", err)
	}
	if _, err := p.enforcer.AddGroupingPolicies(assignments); err != nil {
		return nil, fmt.Errorf("add demo roles: %w", err)
	}
	return p, nil
}

// Grant allows subject (an identity or role) the permission pattern
func (p *CasbinPolicy) Grant(subject, permission string) error {
	if _, err := p.enforcer.AddPolicy(subject, permission); err != nil {
		return fmt.Errorf("grant %s to %s: %w", permission, subject, err)
	}
	return nil
}

// Assign gives identity the role
func (p *CasbinPolicy) Assign(identity, role string) error {
	if _, err := p.enforcer.AddGroupingPolicy(identity, role); err != nil {
		return fmt.Errorf("assign %s to %s: %w", role, identity, err)
	}
	return nil
}

// AuthorizedUserID returns the identity when any rule applies to it
func (p *CasbinPolicy) AuthorizedUserID(ctx context.Context, identity security.Identity) (security.UserID, bool, error) {
	if identity.IsAnonymous() {
		return "", false, nil
	}

	perms, err := p.enforcer.GetImplicitPermissionsForUser(identity.String())
	if err != nil {
		return "", false, fmt.Errorf("resolve casbin permissions: %w", err)
	}
	if len(perms) == 0 {
		return "", false, nil
	}
	return security.UserID(identity.String()), true, nil
}

// Permits evaluates the enforcer. The context is ignored.
func (p *CasbinPolicy) Permits(ctx context.Context, identity security.Identity, permission security.Permission, pctx any) bool {
	if identity.IsAnonymous() {
		return false
	}

	allowed, err := p.enforcer.Enforce(identity.String(), string(permission))
	if err != nil {
		p.logger.Error("casbin enforce failed",
			zap.String("identity", identity.String()),
			zap.String("permission", string(permission)),
			zap.Error(err))
		return false
	}
	return allowed
}
