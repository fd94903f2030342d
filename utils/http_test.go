package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteJSON(w, http.StatusCreated, map[string]string{"login": "jack"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"login":"jack"}`, w.Body.String())
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteJSON(w, http.StatusOK, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteOK(w, map[string]string{"username": "jack"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"username":"jack"}}`, w.Body.String())
}

func TestWriteMessage(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteMessage(w, "You have been logged out"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"You have been logged out"}`, w.Body.String())
}

func TestWriteMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteMethodNotAllowed(w, []string{"DELETE", "GET"}))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "DELETE, GET", w.Header().Get("Allow"))
	assert.Equal(t, "method_not_allowed", decodeError(t, w).Error)
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter) error
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{
			name:        "bad request with details",
			write:       func(w http.ResponseWriter) error { return WriteBadRequest(w, "Validation failed", map[string]interface{}{"username": "username is required"}) },
			wantStatus:  http.StatusBadRequest,
			wantError:   "bad_request",
			wantMessage: "Validation failed",
		},
		{
			name:        "unauthorized default message",
			write:       func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			wantStatus:  http.StatusUnauthorized,
			wantError:   "unauthorized",
			wantMessage: "Authentication required",
		},
		{
			name:        "unauthorized custom message",
			write:       func(w http.ResponseWriter) error { return WriteUnauthorized(w, "Invalid username/password combination") },
			wantStatus:  http.StatusUnauthorized,
			wantError:   "unauthorized",
			wantMessage: "Invalid username/password combination",
		},
		{
			name:        "forbidden default message",
			write:       func(w http.ResponseWriter) error { return WriteForbidden(w, "") },
			wantStatus:  http.StatusForbidden,
			wantError:   "forbidden",
			wantMessage: "Access forbidden",
		},
		{
			name:        "not found default message",
			write:       func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantStatus:  http.StatusNotFound,
			wantError:   "not_found",
			wantMessage: "Resource not found",
		},
		{
			name:        "internal error default message",
			write:       func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantStatus:  http.StatusInternalServerError,
			wantError:   "internal_error",
			wantMessage: "Internal server error",
		},
		{
			name:        "unknown status maps to internal error",
			write:       func(w http.ResponseWriter) error { return WriteError(w, http.StatusTeapot, "teapot", nil) },
			wantStatus:  http.StatusTeapot,
			wantError:   "internal_error",
			wantMessage: "teapot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, tt.wantMessage, response.Message)
		})
	}
}
