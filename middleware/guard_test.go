package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/websecurity/authz"
	"github.com/upb/websecurity/identity"
	"github.com/upb/websecurity/security"
	"go.uber.org/zap"
)

// MockAuthorizationPolicy is a mock implementation of security.AuthorizationPolicy
type MockAuthorizationPolicy struct {
	mock.Mock
}

func (m *MockAuthorizationPolicy) AuthorizedUserID(ctx context.Context, identity security.Identity) (security.UserID, bool, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(security.UserID), args.Bool(1), args.Error(2)
}

func (m *MockAuthorizationPolicy) Permits(ctx context.Context, identity security.Identity, permission security.Permission, pctx any) bool {
	return m.Called(ctx, identity, permission, pctx).Bool(0)
}

func newApp(t *testing.T, users map[string]authz.User) *security.App {
	t.Helper()
	app := security.NewApp()
	require.NoError(t, security.Setup(app, identity.NewCookiePolicy(identity.CookieConfig{}), authz.NewDictionaryPolicy(users)))
	return app
}

func request(method, identityCookie string) *http.Request {
	req := httptest.NewRequest(method, "/", nil)
	if identityCookie != "" {
		req.AddCookie(&http.Cookie{Name: identity.DefaultCookieName, Value: identityCookie})
	}
	return req
}

// countingHandler counts how often it runs
type countingHandler struct {
	calls int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	w.WriteHeader(http.StatusOK)
}

func TestRequirePermission(t *testing.T) {
	app := newApp(t, map[string]authz.User{
		"jack":  {Username: "jack", Permissions: []security.Permission{"public", "protected"}},
		"devin": {Username: "devin", Permissions: []security.Permission{"public"}},
	})
	guard := NewGuard(zap.NewNop())

	tests := []struct {
		name       string
		identity   string
		wantStatus int
		wantCalls  int
	}{
		{name: "anonymous gets 401", identity: "", wantStatus: http.StatusUnauthorized, wantCalls: 0},
		{name: "unknown identity gets 401", identity: "mallory", wantStatus: http.StatusUnauthorized, wantCalls: 0},
		{name: "missing permission gets 403", identity: "devin", wantStatus: http.StatusForbidden, wantCalls: 0},
		{name: "permitted runs handler once", identity: "jack", wantStatus: http.StatusOK, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &countingHandler{}
			handler := app.Middleware(guard.RequirePermission("protected", nil)(h))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, request(http.MethodGet, tt.identity))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalls, h.calls)
		})
	}

	t.Run("error body is JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.Middleware(guard.RequirePermission("protected", nil)(&countingHandler{})).ServeHTTP(w, request(http.MethodGet, "devin"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "forbidden", body["error"])
	})

	t.Run("empty permission is a server error", func(t *testing.T) {
		h := &countingHandler{}
		w := httptest.NewRecorder()
		app.Middleware(guard.RequirePermission("", nil)(h)).ServeHTTP(w, request(http.MethodGet, "jack"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Zero(t, h.calls)
	})

	t.Run("unbound app rejects as unauthenticated", func(t *testing.T) {
		h := &countingHandler{}
		w := httptest.NewRecorder()
		security.NewApp().Middleware(guard.RequirePermission("protected", nil)(h)).ServeHTTP(w, request(http.MethodGet, "jack"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, h.calls)
	})
}

func TestRequirePermissionFunc(t *testing.T) {
	ctx := mock.Anything
	policy := new(MockAuthorizationPolicy)
	policy.On("AuthorizedUserID", ctx, mock.Anything).Return(security.UserID("Andrew"), true, nil)
	policy.On("Permits", ctx, mock.Anything, security.Permission("bike.update"), "42").Return(true)

	app := security.NewApp()
	require.NoError(t, security.Setup(app, identity.NewCookiePolicy(identity.CookieConfig{}), policy))
	guard := NewGuard(zap.NewNop())

	r := chi.NewRouter()
	r.Use(app.Middleware)
	r.With(guard.RequirePermissionFunc("bike.update", func(r *http.Request) any {
		return chi.URLParam(r, "id")
	})).Put("/bikes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPut, "/bikes/42", nil)
	req.AddCookie(&http.Cookie{Name: identity.DefaultCookieName, Value: "Andrew"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	policy.AssertExpectations(t)
}

func TestRequireAuth(t *testing.T) {
	app := newApp(t, map[string]authz.User{"jack": {Username: "jack"}})
	guard := NewGuard(zap.NewNop())

	t.Run("stores user id", func(t *testing.T) {
		var got security.UserID
		handler := app.Middleware(guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = GetUserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, request(http.MethodGet, "jack"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, security.UserID("jack"), got)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		h := &countingHandler{}
		w := httptest.NewRecorder()
		app.Middleware(guard.RequireAuth(h)).ServeHTTP(w, request(http.MethodGet, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, h.calls)
	})

	t.Run("malformed credential gets 400", func(t *testing.T) {
		jwtPolicy, err := identity.NewJWTPolicy(identity.JWTConfig{Secret: "secret"})
		require.NoError(t, err)
		jwtApp := security.NewApp()
		require.NoError(t, security.Setup(jwtApp, jwtPolicy, authz.NewDictionaryPolicy(nil)))

		h := &countingHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		jwtApp.Middleware(guard.RequireAuth(h)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid authorization scheme")
		assert.Zero(t, h.calls)
	})
}

func TestResource(t *testing.T) {
	app := newApp(t, map[string]authz.User{
		"reader":   {Username: "reader", Permissions: []security.Permission{"bike.read"}},
		"editor":   {Username: "editor", Permissions: []security.Permission{"bike.read", "bike.update"}},
		"mechanic": {Username: "mechanic", Permissions: []security.Permission{"bike.read", "bike.create", "bike.update", "bike.delete"}},
	})
	guard := NewGuard(zap.NewNop())

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	bikes := app.Middleware(guard.Resource("bike", MethodHandlers{
		http.MethodGet:    ok,
		http.MethodPost:   ok,
		http.MethodPut:    ok,
		http.MethodPatch:  ok,
		http.MethodDelete: ok,
	}))

	tests := []struct {
		identity string
		method   string
		want     int
	}{
		{"", http.MethodGet, http.StatusUnauthorized},
		{"", http.MethodDelete, http.StatusUnauthorized},
		{"reader", http.MethodGet, http.StatusOK},
		{"reader", http.MethodPost, http.StatusForbidden},
		{"reader", http.MethodPut, http.StatusForbidden},
		{"reader", http.MethodDelete, http.StatusForbidden},
		{"editor", http.MethodGet, http.StatusOK},
		{"editor", http.MethodPut, http.StatusOK},
		{"editor", http.MethodPatch, http.StatusOK},
		{"editor", http.MethodPost, http.StatusForbidden},
		{"editor", http.MethodDelete, http.StatusForbidden},
		{"mechanic", http.MethodGet, http.StatusOK},
		{"mechanic", http.MethodPost, http.StatusOK},
		{"mechanic", http.MethodPut, http.StatusOK},
		{"mechanic", http.MethodDelete, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.identity+" "+tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			bikes.ServeHTTP(w, request(tt.method, tt.identity))
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("unregistered method gets 405", func(t *testing.T) {
		w := httptest.NewRecorder()
		bikes.ServeHTTP(w, request(http.MethodOptions, "mechanic"))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "DELETE, GET, PATCH, POST, PUT", w.Header().Get("Allow"))
	})

	t.Run("only registered methods are served", func(t *testing.T) {
		readOnly := app.Middleware(guard.Resource("bike", MethodHandlers{http.MethodGet: ok}))
		w := httptest.NewRecorder()
		readOnly.ServeHTTP(w, request(http.MethodDelete, "mechanic"))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET", w.Header().Get("Allow"))
	})
}

func TestMethodVerb(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		got, ok := MethodVerb(method)
		assert.True(t, ok, method)
		assert.Equal(t, want, got, method)
	}

	_, ok := MethodVerb(http.MethodOptions)
	assert.False(t, ok)
}
