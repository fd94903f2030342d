package security

import (
	"context"
	"net/http"
	"sync/atomic"
)

// binding is the immutable pair installed by Setup
type binding struct {
	identity IdentityPolicy
	authz    AuthorizationPolicy
}

// App holds the application-wide security binding. Create one per
// application and expose it to handlers with App.Middleware.
type App struct {
	bound atomic.Pointer[binding]
}

// NewApp creates an App with no policies bound.
func NewApp() *App {
	return &App{}
}

// Setup binds the identity and authorization policies to app.
// Calling it again replaces the previous binding.
func Setup(app *App, identityPolicy IdentityPolicy, authzPolicy AuthorizationPolicy) error {
	if app == nil || identityPolicy == nil || authzPolicy == nil {
		return ErrInvalidPolicy
	}
	app.bound.Store(&binding{identity: identityPolicy, authz: authzPolicy})
	return nil
}

// Configured reports whether Setup has been called
func (a *App) Configured() bool {
	return a != nil && a.bound.Load() != nil
}

// Middleware exposes the App to downstream handlers through the request context.
func (a *App) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithApp(r.Context(), a)))
	})
}

type appContextKey struct{}

// WithApp adds the App to the context
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// AppFromContext retrieves the App from context, or nil
func AppFromContext(ctx context.Context) *App {
	if app, ok := ctx.Value(appContextKey{}).(*App); ok {
		return app
	}
	return nil
}

// Policies returns the policies bound to the App serving r.
func Policies(r *http.Request) (IdentityPolicy, AuthorizationPolicy, bool) {
	b := lookup(r)
	if b == nil {
		return nil, nil, false
	}
	return b.identity, b.authz, true
}

func lookup(r *http.Request) *binding {
	app := AppFromContext(r.Context())
	if app == nil {
		return nil
	}
	return app.bound.Load()
}
