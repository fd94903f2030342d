// Package authz contains the AuthorizationPolicy implementations: an
// in-memory user dictionary, a database-backed policy and a casbin RBAC
// enforcer.
package authz
