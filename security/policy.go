package security

import (
	"context"
	"net/http"
)

// Identity is the token a requester claims to be, or Anonymous.
// The zero value is Anonymous; a present identity is never empty.
type Identity struct {
	token string
}

// Anonymous is the absent identity.
var Anonymous Identity

// NewIdentity returns the identity for token. Empty tokens are rejected.
func NewIdentity(token string) (Identity, error) {
	if token == "" {
		return Anonymous, ErrInvalidIdentity
	}
	return Identity{token: token}, nil
}

// IsAnonymous reports whether no identity is present
func (i Identity) IsAnonymous() bool {
	return i.token == ""
}

// String returns the raw token ("" for Anonymous)
func (i Identity) String() string {
	return i.token
}

// UserID is the durable identifier of an authenticated principal
type UserID string

// Permission names a capability. Policies decide its meaning.
type Permission string

// IdentityPolicy extracts a claimed identity from a request and knows how to
// attach it to, or remove it from, a response.
type IdentityPolicy interface {
	// Identify returns Anonymous when the request carries no identity. A
	// credential that is present but cannot be parsed or verified yields an
	// error of type ErrorTypeMalformedCredential.
	Identify(r *http.Request) (Identity, error)

	// Remember modifies the response so that subsequent requests identify as identity.
	Remember(w http.ResponseWriter, r *http.Request, identity Identity, opts ...RememberOption) error

	// Forget modifies the response so that subsequent requests are anonymous.
	// Forgetting when nothing was remembered is not an error.
	Forget(w http.ResponseWriter, r *http.Request) error
}

// AuthorizationPolicy maps identities to user ids and decides permissions.
type AuthorizationPolicy interface {
	// AuthorizedUserID resolves identity to a user id. ok is false for unknown
	// or disabled identities; err is reserved for collaborator failures.
	AuthorizedUserID(ctx context.Context, identity Identity) (id UserID, ok bool, err error)

	// Permits reports whether identity holds permission under pctx. It returns
	// false for Anonymous and for any lookup failure.
	Permits(ctx context.Context, identity Identity, permission Permission, pctx any) bool
}
