package identity

import (
	"fmt"
	"net/http"

	"github.com/upb/websecurity/security"
	"github.com/upb/websecurity/sessions"
)

// DefaultSessionKey is the session entry holding the identity
const DefaultSessionKey = "AIOHTTP_SECURITY"

// SessionPolicy keeps the identity in a server-managed session
type SessionPolicy struct {
	store sessions.Store
	key   string
}

// NewSessionPolicy creates a session identity policy over store.
// An empty key selects DefaultSessionKey.
func NewSessionPolicy(store sessions.Store, key string) *SessionPolicy {
	if key == "" {
		key = DefaultSessionKey
	}
	return &SessionPolicy{store: store, key: key}
}

// Identify reads the identity from the request's session
func (p *SessionPolicy) Identify(r *http.Request) (security.Identity, error) {
	sess, err := p.store.Get(r)
	if err != nil {
		return security.Anonymous, fmt.Errorf("failed to load session: %w", err)
	}
	value, ok := sess.Get(p.key)
	if !ok || value == "" {
		return security.Anonymous, nil
	}
	return security.NewIdentity(value)
}

// Remember stores the identity in the session and saves it.
// Cookie attributes are owned by the session store; options are ignored.
func (p *SessionPolicy) Remember(w http.ResponseWriter, r *http.Request, identity security.Identity, opts ...security.RememberOption) error {
	if identity.IsAnonymous() {
		return security.ErrInvalidIdentity
	}
	sess, err := p.store.Get(r)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	sess.Set(p.key, identity.String())
	if err := p.store.Save(w, r, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Forget removes the identity from the session. Other session values are kept.
func (p *SessionPolicy) Forget(w http.ResponseWriter, r *http.Request) error {
	sess, err := p.store.Get(r)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if _, ok := sess.Get(p.key); !ok {
		return nil
	}
	sess.Delete(p.key)
	if err := p.store.Save(w, r, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
