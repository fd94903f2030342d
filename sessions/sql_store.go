package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLifetime is used when no lifetime is configured
const DefaultLifetime = 24 * time.Hour

// SQLStore keeps session values server-side in a "sessions" table. The client
// only holds the session id cookie. Queries use $n placeholders and run on
// both postgres and sqlite.
type SQLStore struct {
	db         *sql.DB
	cookieName string
	lifetime   time.Duration
	secure     bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewSQLStore creates a database-backed session store
func NewSQLStore(db *sql.DB, cookieName string, lifetime time.Duration, secure bool, logger *zap.Logger) *SQLStore {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &SQLStore{
		db:         db,
		cookieName: cookieName,
		lifetime:   lifetime,
		secure:     secure,
		logger:     logger,
		now:        time.Now,
	}
}

// InitSchema creates the sessions table
func (s *SQLStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id VARCHAR(64) PRIMARY KEY,
			data TEXT NOT NULL,
			expires_at BIGINT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize sessions schema: %w", err)
	}
	return nil
}

// Get loads the session named by the request cookie
func (s *SQLStore) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return NewSession(), nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return NewSession(), nil
	}

	ctx := r.Context()
	var (
		data      string
		expiresAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM sessions WHERE id = $1`,
		cookie.Value,
	).Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewSession(), nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if s.now().Unix() >= expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, cookie.Value); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return NewSession(), nil
	}

	values := make(map[string]string)
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &Session{ID: cookie.Value, Values: values}, nil
}

// Save writes the session row and the id cookie. Saving an empty, previously
// stored session deletes it.
func (s *SQLStore) Save(w http.ResponseWriter, r *http.Request, sess *Session) error {
	ctx := r.Context()

	if sess.Empty() {
		if sess.IsNew || sess.ID == "" {
			return nil
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sess.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		http.SetCookie(w, s.cookie("", -1))
		return nil
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	data, err := json.Marshal(sess.Values)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	expiresAt := s.now().Add(s.lifetime).Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`, sess.ID, string(data), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, s.cookie(sess.ID, int(s.lifetime.Seconds())))
	sess.IsNew = false
	return nil
}

// Cleanup deletes expired sessions and returns the number removed
func (s *SQLStore) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
