// Package security composes an IdentityPolicy and an AuthorizationPolicy
// per request.
//
// An App is bound once at startup with Setup and exposed to handlers with
// App.Middleware. Handlers then call the request-scoped helpers:
//
//	security.Remember(w, r, "jack")
//	security.Forget(w, r)
//	security.AuthorizedUserID(r)
//	security.Permits(r, "protected", nil)
//	security.CheckPermission(r, "protected", nil)
//
// When no policies are bound, AuthorizedUserID reports no user, IsAnonymous
// is true and Permits grants everything; Remember and Forget fail with
// ErrNotConfigured. Authentication is always checked before authorization,
// so an anonymous caller sees ErrUnauthenticated rather than ErrForbidden.
package security
