package identity

import (
	"net/http"
	"net/url"
	"time"

	"github.com/upb/websecurity/security"
)

const (
	// DefaultCookieName is the cookie carrying the identity
	DefaultCookieName = "AIOHTTP_SECURITY"

	// DefaultCookieMaxAge is how long a remembered identity lives unless overridden
	DefaultCookieMaxAge = 30 * 24 * time.Hour
)

// CookiePolicy stores the identity verbatim in a cookie.
//
// The value is readable and forgeable by the client. Use it for demos and
// tests; SessionPolicy is the production choice.
type CookiePolicy struct {
	name   string
	maxAge time.Duration
}

// CookieConfig holds configuration for CookiePolicy
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
}

// NewCookiePolicy creates a cookie identity policy. Zero fields take the defaults.
func NewCookiePolicy(cfg CookieConfig) *CookiePolicy {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultCookieMaxAge
	}
	return &CookiePolicy{name: cfg.Name, maxAge: cfg.MaxAge}
}

// MsgInvalidCookie is the malformed credential message for an undecodable identity cookie
const MsgInvalidCookie = "Invalid identity cookie"

// Identify returns the decoded cookie value, or Anonymous when the cookie is absent or empty
func (p *CookiePolicy) Identify(r *http.Request) (security.Identity, error) {
	cookie, err := r.Cookie(p.name)
	if err != nil || cookie.Value == "" {
		return security.Anonymous, nil
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return security.Anonymous, security.MalformedCredential(MsgInvalidCookie, err)
	}
	if value == "" {
		return security.Anonymous, nil
	}
	return security.NewIdentity(value)
}

// Remember sets the identity cookie, query-escaped so that any identity
// survives the cookie value charset. MaxAge, Path, Domain, Secure, HTTPOnly
// and SameSite options are honored.
func (p *CookiePolicy) Remember(w http.ResponseWriter, r *http.Request, identity security.Identity, opts ...security.RememberOption) error {
	if identity.IsAnonymous() {
		return security.ErrInvalidIdentity
	}

	o := security.ApplyRememberOptions(opts...)
	maxAge := p.maxAge
	if o.MaxAge != nil {
		maxAge = *o.MaxAge
	}
	path := o.Path
	if path == "" {
		path = "/"
	}

	cookie := &http.Cookie{
		Name:     p.name,
		Value:    url.QueryEscape(identity.String()),
		Path:     path,
		Domain:   o.Domain,
		Secure:   o.Secure,
		HttpOnly: o.HTTPOnly,
		SameSite: o.SameSite,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	}

	http.SetCookie(w, cookie)
	return nil
}

// Forget expires the identity cookie
func (p *CookiePolicy) Forget(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:    p.name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
	return nil
}
