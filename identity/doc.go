// Package identity contains the IdentityPolicy implementations: a plain
// cookie, a server-side session entry and a bearer JWT. The policies are
// independent peers; pick one per application and pass it to security.Setup.
package identity
