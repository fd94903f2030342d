package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/websecurity/security"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for the authorized user ID
	UserIDKey contextKey = "user_id"
)

// GetRequestIDFromContext retrieves the request ID from context.
// Falls back to the id set by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetUserIDFromContext retrieves the user ID stored by Guard.RequireAuth
func GetUserIDFromContext(ctx context.Context) (security.UserID, bool) {
	if val := ctx.Value(UserIDKey); val != nil {
		if userID, ok := val.(security.UserID); ok {
			return userID, true
		}
	}
	return "", false
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID security.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
