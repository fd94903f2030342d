package middleware

import (
	"errors"
	"net/http"

	"github.com/upb/websecurity/security"
	"github.com/upb/websecurity/utils"
)

// StatusForError returns the HTTP status a security failure maps to
func StatusForError(err error) int {
	switch security.GetErrorType(err) {
	case security.ErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	case security.ErrorTypeForbidden:
		return http.StatusForbidden
	case security.ErrorTypeMalformedCredential:
		return http.StatusBadRequest
	default:
		// not_configured, validation and collaborator failures
		return http.StatusInternalServerError
	}
}

// WriteSecurityError writes the JSON error response for err
func WriteSecurityError(w http.ResponseWriter, err error) error {
	switch security.GetErrorType(err) {
	case security.ErrorTypeUnauthenticated:
		return utils.WriteUnauthorized(w, "Authentication required")
	case security.ErrorTypeForbidden:
		return utils.WriteForbidden(w, "Insufficient permissions")
	case security.ErrorTypeMalformedCredential:
		return utils.WriteBadRequest(w, messageOf(err), nil)
	case security.ErrorTypeNotConfigured:
		return utils.WriteInternalServerError(w, messageOf(err))
	default:
		return utils.WriteInternalServerError(w, "")
	}
}

func messageOf(err error) string {
	var secErr *security.Error
	if errors.As(err, &secErr) {
		return secErr.Message
	}
	return ""
}
