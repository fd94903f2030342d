package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/websecurity/app"
	"github.com/upb/websecurity/config"
	"go.uber.org/zap"
)

func testConfig(identityPolicy, authzPolicy string) *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
		},
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: ":memory:",
		},
		Security: config.SecurityConfig{
			IdentityPolicy: identityPolicy,
			AuthzPolicy:    authzPolicy,
			CookieName:     "AIOHTTP_SECURITY",
			CookieMaxAge:   30 * 24 * time.Hour,
			SessionKey:     "AIOHTTP_SECURITY",
		},
		Session: config.SessionConfig{
			Store:      config.SessionStoreCookie,
			CookieName: "API_SESSION",
			MaxAge:     time.Hour,
		},
		JWT: config.JWTConfig{
			Secret:        "secret",
			Algorithm:     "HS256",
			IdentityClaim: "login",
			TTL:           time.Hour,
		},
		Demo: config.DemoConfig{
			Seed:     true,
			Password: "password",
		},
		Observability: config.ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

// client talks to a test server, keeping cookies and an optional bearer token
type client struct {
	t      *testing.T
	base   string
	http   *http.Client
	bearer string
}

func newServer(t *testing.T, cfg *config.Config) *client {
	t.Helper()
	require.NoError(t, cfg.Validate())

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(method, path string, body url.Values) *http.Response {
	c.t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, c.base+path, strings.NewReader(body.Encode()))
		require.NoError(c.t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequest(method, c.base+path, nil)
		require.NoError(c.t, err)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) status(method, path string) int {
	c.t.Helper()
	return c.do(method, path, nil).StatusCode
}

func (c *client) login(username, password string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, "/login", url.Values{"username": {username}, "password": {password}})
}

func (c *client) index() map[string]interface{} {
	c.t.Helper()
	resp := c.do(http.MethodGet, "/", nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Data
}

func TestLoginFlow(t *testing.T) {
	tests := []struct {
		name         string
		identity     string
		authz        string
		sessionStore string
		user         string // holds public and protected
		publicOnly   string
	}{
		{name: "cookie dictionary", identity: config.IdentityCookie, authz: config.AuthzDictionary, user: "jack", publicOnly: "devin"},
		{name: "session dictionary", identity: config.IdentitySession, authz: config.AuthzDictionary, user: "jack", publicOnly: "devin"},
		{name: "session database", identity: config.IdentitySession, authz: config.AuthzDatabase, user: "moderator", publicOnly: "user"},
		{name: "database session store", identity: config.IdentitySession, authz: config.AuthzDatabase, sessionStore: config.SessionStoreDatabase, user: "moderator", publicOnly: "user"},
		{name: "cookie casbin", identity: config.IdentityCookie, authz: config.AuthzCasbin, user: "jack", publicOnly: "devin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(tt.identity, tt.authz)
			if tt.sessionStore != "" {
				cfg.Session.Store = tt.sessionStore
			}
			c := newServer(t, cfg)

			// anonymous
			assert.Equal(t, "You need to login", c.index()["message"])
			assert.Equal(t, http.StatusUnauthorized, c.status(http.MethodGet, "/public"))
			assert.Equal(t, http.StatusUnauthorized, c.status(http.MethodGet, "/protected"))
			assert.Equal(t, http.StatusUnauthorized, c.status(http.MethodGet, "/logout"))

			assert.Equal(t, http.StatusUnauthorized, c.login(tt.user, "wrong").StatusCode)
			assert.Equal(t, http.StatusUnauthorized, c.status(http.MethodGet, "/public"))

			// public only
			require.Equal(t, http.StatusOK, c.login(tt.publicOnly, "password").StatusCode)
			assert.Equal(t, true, c.index()["logged_in"])
			assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/public"))
			assert.Equal(t, http.StatusForbidden, c.status(http.MethodGet, "/protected"))

			// public and protected
			require.Equal(t, http.StatusOK, c.login(tt.user, "password").StatusCode)
			index := c.index()
			assert.Equal(t, "Hello, "+tt.user+"!", index["message"])
			assert.NotEmpty(t, index["user_id"])
			assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/public"))
			assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/protected"))

			assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/logout"))
			assert.Equal(t, "You need to login", c.index()["message"])
			assert.Equal(t, http.StatusUnauthorized, c.status(http.MethodGet, "/protected"))
		})
	}
}

func TestDatabaseSuperuser(t *testing.T) {
	c := newServer(t, testConfig(config.IdentityCookie, config.AuthzDatabase))

	require.Equal(t, http.StatusOK, c.login("admin", "password").StatusCode)
	assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/protected"))
	assert.Equal(t, http.StatusOK, c.status(http.MethodDelete, "/bikes"))
}

func TestJWTFlow(t *testing.T) {
	c := newServer(t, testConfig(config.IdentityJWT, config.AuthzDictionary))

	resp := c.login("jack", "password")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Data.Token)

	// the token is not remembered in a cookie
	assert.Equal(t, http.StatusUnauthorized, c.status(http.MethodGet, "/protected"))

	c.bearer = body.Data.Token
	assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/protected"))

	c.bearer = "garbage"
	resp = c.do(http.MethodGet, "/protected", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBikeResource(t *testing.T) {
	// devin is a cyclist (bike.read), jack a mechanic (bike.*)
	c := newServer(t, testConfig(config.IdentityCookie, config.AuthzCasbin))

	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	for _, m := range methods {
		assert.Equal(t, http.StatusUnauthorized, c.status(m, "/bikes"), m)
	}

	require.Equal(t, http.StatusFound, c.status(http.MethodPost, "/session/devin"))
	assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/bikes"))
	for _, m := range methods[1:] {
		assert.Equal(t, http.StatusForbidden, c.status(m, "/bikes"), m)
	}

	require.Equal(t, http.StatusFound, c.status(http.MethodPost, "/session/jack"))
	for _, m := range methods {
		assert.Equal(t, http.StatusOK, c.status(m, "/bikes"), m)
	}

	require.Equal(t, http.StatusFound, c.status(http.MethodDelete, "/session/jack"))
	for _, m := range methods {
		assert.Equal(t, http.StatusUnauthorized, c.status(m, "/bikes"), m)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	c := newServer(t, testConfig(config.IdentitySession, config.AuthzDatabase))

	assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/healthz"))
	assert.Equal(t, http.StatusOK, c.status(http.MethodGet, "/readyz"))
	assert.Equal(t, http.StatusNotFound, c.status(http.MethodGet, "/missing"))
}
