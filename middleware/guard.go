package middleware

import (
	"net/http"
	"sort"
	"strings"

	"github.com/upb/websecurity/security"
	"github.com/upb/websecurity/utils"
	"go.uber.org/zap"
)

// Guard wraps handlers with the security checks. Every check runs before the
// wrapped handler, so a rejected request never reaches it.
type Guard struct {
	logger *zap.Logger
}

// NewGuard creates a new Guard
func NewGuard(logger *zap.Logger) *Guard {
	return &Guard{logger: logger}
}

// RequireAuth lets the request through only when the requester resolves to a
// user id. The id is stored in the request context.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := security.CheckAuthorized(r)
		if err != nil {
			g.reject(w, r, "", err)
			return
		}

		g.logger.Debug("authentication successful",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.String("user_id", string(userID)))

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequirePermission lets the request through only when the requester is
// authorized and holds permission under pctx. Anonymous requesters get 401,
// authorized requesters lacking the permission get 403.
func (g *Guard) RequirePermission(permission security.Permission, pctx any) func(http.Handler) http.Handler {
	return g.RequirePermissionFunc(permission, func(*http.Request) any { return pctx })
}

// RequirePermissionFunc is RequirePermission with the permission context
// computed per request, e.g. from a URL parameter.
func (g *Guard) RequirePermissionFunc(permission security.Permission, pctx func(*http.Request) any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var c any
			if pctx != nil {
				c = pctx(r)
			}
			if err := security.CheckPermission(r, permission, c); err != nil {
				g.reject(w, r, permission, err)
				return
			}

			g.logger.Debug("permission check passed",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("permission", string(permission)))

			next.ServeHTTP(w, r)
		})
	}
}

// MethodHandlers maps HTTP methods to the handlers of a resource
type MethodHandlers map[string]http.Handler

// Resource serves a resource whose methods are guarded independently by the
// permission "<prefix>.<verb>": GET and HEAD need read, POST create, PUT and
// PATCH update, DELETE delete. Methods without a handler get 405.
func (g *Guard) Resource(prefix string, handlers MethodHandlers) http.Handler {
	guarded := make(map[string]http.Handler, len(handlers))
	allowed := make([]string, 0, len(handlers))

	for method, h := range handlers {
		method = strings.ToUpper(method)
		verb, ok := MethodVerb(method)
		if !ok {
			continue
		}
		permission := security.Permission(prefix + "." + verb)
		guarded[method] = g.RequirePermission(permission, nil)(h)
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := guarded[r.Method]
		if !ok {
			_ = utils.WriteMethodNotAllowed(w, allowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// MethodVerb returns the permission verb guarding an HTTP method
func MethodVerb(method string) (string, bool) {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read", true
	case http.MethodPost:
		return "create", true
	case http.MethodPut, http.MethodPatch:
		return "update", true
	case http.MethodDelete:
		return "delete", true
	default:
		return "", false
	}
}

// reject logs the failed check and writes the mapped error response
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, permission security.Permission, err error) {
	fields := []zap.Field{
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if permission != "" {
		fields = append(fields, zap.String("permission", string(permission)))
	}

	switch security.GetErrorType(err) {
	case security.ErrorTypeUnauthenticated, security.ErrorTypeForbidden:
		g.logger.Warn("access denied", fields...)
	case security.ErrorTypeMalformedCredential:
		g.logger.Warn("malformed credential", fields...)
	default:
		g.logger.Error("security check failed", fields...)
	}

	_ = WriteSecurityError(w, err)
}
