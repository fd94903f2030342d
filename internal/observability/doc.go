// Package observability builds the structured zap logger shared by the
// server components.
package observability
