package sessions

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// DefaultCookieName is the cookie that carries the session
const DefaultCookieName = "API_SESSION"

// CookieStore keeps the whole session in a signed (and, with a block key,
// encrypted) cookie.
type CookieStore struct {
	name   string
	codec  *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
	logger *zap.Logger
}

// CookieStoreConfig holds configuration for CookieStore
type CookieStoreConfig struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte // optional; enables encryption (16, 24 or 32 bytes)
	MaxAge     time.Duration
	Secure     bool
}

// NewCookieStore creates a new cookie-backed session store
func NewCookieStore(cfg CookieStoreConfig, logger *zap.Logger) (*CookieStore, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("session hash key is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.MaxAge(int(cfg.MaxAge.Seconds()))

	return &CookieStore{
		name:   cfg.CookieName,
		codec:  codec,
		maxAge: cfg.MaxAge,
		secure: cfg.Secure,
		logger: logger,
	}, nil
}

// Get decodes the session cookie. A missing or tampered cookie yields a new session.
func (s *CookieStore) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return NewSession(), nil
	}

	values := make(map[string]string)
	if err := s.codec.Decode(s.name, cookie.Value, &values); err != nil {
		s.logger.Debug("discarding undecodable session cookie",
			zap.String("cookie", s.name),
			zap.Error(err))
		return NewSession(), nil
	}

	return &Session{Values: values}, nil
}

// Save encodes the session into the response cookie. An empty session expires the cookie.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess.Empty() {
		if !sess.IsNew {
			http.SetCookie(w, s.cookie("", -1))
		}
		return nil
	}

	encoded, err := s.codec.Encode(s.name, sess.Values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	http.SetCookie(w, s.cookie(encoded, int(s.maxAge.Seconds())))
	sess.IsNew = false
	return nil
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
