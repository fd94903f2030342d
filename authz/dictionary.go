package authz

import (
	"context"
	"slices"

	"github.com/upb/websecurity/security"
)

// User is an entry of a DictionaryPolicy
type User struct {
	Username     string
	PasswordHash string
	Permissions  []security.Permission
}

// DictionaryPolicy authorizes against a fixed map of users keyed by identity.
// The identity doubles as the user id.
type DictionaryPolicy struct {
	users map[string]User
}

// NewDictionaryPolicy creates a policy over a copy of users
func NewDictionaryPolicy(users map[string]User) *DictionaryPolicy {
	copied := make(map[string]User, len(users))
	for k, u := range users {
		u.Permissions = slices.Clone(u.Permissions)
		copied[k] = u
	}
	return &DictionaryPolicy{users: copied}
}

// DemoUsers returns the dictionary demo accounts, all sharing passwordHash
func DemoUsers(passwordHash string) map[string]User {
	return map[string]User{
		"devin": {
			Username:     "devin",
			PasswordHash: passwordHash,
			Permissions:  []security.Permission{"public"},
		},
		"jack": {
			Username:     "jack",
			PasswordHash: passwordHash,
			Permissions:  []security.Permission{"public", "protected"},
		},
	}
}

// AuthorizedUserID returns the identity itself when it names a known user
func (p *DictionaryPolicy) AuthorizedUserID(ctx context.Context, identity security.Identity) (security.UserID, bool, error) {
	if identity.IsAnonymous() {
		return "", false, nil
	}
	if _, ok := p.users[identity.String()]; !ok {
		return "", false, nil
	}
	return security.UserID(identity.String()), true, nil
}

// Permits reports whether the user holds permission. The context is ignored.
func (p *DictionaryPolicy) Permits(ctx context.Context, identity security.Identity, permission security.Permission, pctx any) bool {
	if identity.IsAnonymous() {
		return false
	}
	user, ok := p.users[identity.String()]
	if !ok {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

// Lookup returns the user registered under username
func (p *DictionaryPolicy) Lookup(username string) (User, bool) {
	u, ok := p.users[username]
	return u, ok
}
