// Package sessions provides the session stores used by the session-backed
// identity policy. A Store loads a mutable Session for a request and
// persists it into the response.
package sessions

import (
	"net/http"
)

// Session is a request's mutable key/value session state
type Session struct {
	ID     string
	Values map[string]string
	IsNew  bool
}

// NewSession returns an empty session not yet persisted
func NewSession() *Session {
	return &Session{
		Values: make(map[string]string),
		IsNew:  true,
	}
}

// Get returns the value stored under key
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Set stores value under key
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = value
}

// Delete removes key. Removing a missing key is a no-op.
func (s *Session) Delete(key string) {
	delete(s.Values, key)
}

// Empty reports whether the session holds no values
func (s *Session) Empty() bool {
	return len(s.Values) == 0
}

// Store loads and saves sessions
type Store interface {
	// Get returns the session for r, or a new empty session when r carries none.
	Get(r *http.Request) (*Session, error)

	// Save persists s and writes whatever the client needs to present it again.
	Save(w http.ResponseWriter, r *http.Request, s *Session) error
}
