package security

import (
	"net/http"
)

// Remember stores identity into the response through the bound identity policy.
func Remember(w http.ResponseWriter, r *http.Request, identity string, opts ...RememberOption) error {
	id, err := NewIdentity(identity)
	if err != nil {
		return err
	}
	b := lookup(r)
	if b == nil {
		return ErrNotConfigured
	}
	return b.identity.Remember(w, r, id, opts...)
}

// Forget removes the previously remembered identity from the response.
func Forget(w http.ResponseWriter, r *http.Request) error {
	b := lookup(r)
	if b == nil {
		return ErrNotConfigured
	}
	return b.identity.Forget(w, r)
}

// GetIdentity returns the raw identity claimed by r. It is Anonymous when the
// security subsystem is not configured.
func GetIdentity(r *http.Request) (Identity, error) {
	b := lookup(r)
	if b == nil {
		return Anonymous, nil
	}
	return b.identity.Identify(r)
}

// AuthorizedUserID resolves the user id of the requester. ok is false when
// the subsystem is unbound, the request is anonymous, or the identity is unknown.
func AuthorizedUserID(r *http.Request) (UserID, bool, error) {
	b := lookup(r)
	if b == nil {
		return "", false, nil
	}
	identity, err := b.identity.Identify(r)
	if err != nil {
		return "", false, err
	}
	if identity.IsAnonymous() {
		return "", false, nil
	}
	return b.authz.AuthorizedUserID(r.Context(), identity)
}

// Permits reports whether the requester holds permission under pctx.
// When no policies are bound every permission is granted.
func Permits(r *http.Request, permission Permission, pctx any) (bool, error) {
	if permission == "" {
		return false, ErrInvalidPermission
	}
	b := lookup(r)
	if b == nil {
		return true, nil
	}
	identity, err := b.identity.Identify(r)
	if err != nil {
		return false, err
	}
	if identity.IsAnonymous() {
		return false, nil
	}
	return b.authz.Permits(r.Context(), identity, permission, pctx), nil
}

// IsAnonymous reports whether the requester presented no identity.
func IsAnonymous(r *http.Request) (bool, error) {
	identity, err := GetIdentity(r)
	if err != nil {
		return false, err
	}
	return identity.IsAnonymous(), nil
}

// CheckAuthorized returns the requester's user id or ErrUnauthenticated.
func CheckAuthorized(r *http.Request) (UserID, error) {
	userID, ok, err := AuthorizedUserID(r)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// CheckPermission fails with ErrUnauthenticated for anonymous requesters and
// with ErrForbidden when the permission is not held.
func CheckPermission(r *http.Request, permission Permission, pctx any) error {
	if permission == "" {
		return ErrInvalidPermission
	}
	if _, err := CheckAuthorized(r); err != nil {
		return err
	}
	allowed, err := Permits(r, permission, pctx)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}
