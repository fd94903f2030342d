package security

import (
	"net/http"
	"time"
)

// RememberOptions is the option bag handed to IdentityPolicy.Remember.
// Each policy reads only the fields it understands.
type RememberOptions struct {
	// MaxAge overrides the policy default when set. Zero means a session cookie.
	MaxAge   *time.Duration
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	// Extra carries policy-specific settings.
	Extra map[string]any
}

// RememberOption configures RememberOptions
type RememberOption func(*RememberOptions)

// WithMaxAge sets the lifetime of the remembered identity.
func WithMaxAge(d time.Duration) RememberOption {
	return func(o *RememberOptions) {
		o.MaxAge = &d
	}
}

// WithSessionCookie asks cookie-based policies for a cookie without max-age.
func WithSessionCookie() RememberOption {
	return WithMaxAge(0)
}

// WithPath sets the cookie path.
func WithPath(path string) RememberOption {
	return func(o *RememberOptions) {
		o.Path = path
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) RememberOption {
	return func(o *RememberOptions) {
		o.Domain = domain
	}
}

// WithSecure marks the cookie Secure and HttpOnly with the given SameSite mode.
func WithSecure(sameSite http.SameSite) RememberOption {
	return func(o *RememberOptions) {
		o.Secure = true
		o.HTTPOnly = true
		o.SameSite = sameSite
	}
}

// WithExtra stores a policy-specific option.
func WithExtra(key string, value any) RememberOption {
	return func(o *RememberOptions) {
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = value
	}
}

// ApplyRememberOptions folds opts into a RememberOptions value.
func ApplyRememberOptions(opts ...RememberOption) RememberOptions {
	var o RememberOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
