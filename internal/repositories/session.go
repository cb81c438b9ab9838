package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/lenavs/internal/models"
)

// SessionRepository persists the identity session between process runs, keyed by storage key.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts the session stored under key.
func (r *SessionRepository) Save(key string, session *models.Session) error {
	if session == nil {
		return r.Clear(key)
	}

	var expiresAt sql.NullTime
	if !session.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: session.ExpiresAt, Valid: true}
	}

	query := `
		INSERT INTO auth_sessions (storage_key, access_token, refresh_token, token_type, expires_at, user_id, email, name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			user_id = excluded.user_id,
			email = excluded.email,
			name = excluded.name,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		key,
		session.AccessToken,
		session.RefreshToken,
		session.TokenType,
		expiresAt,
		session.User.ID,
		session.User.Email,
		session.User.Name,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Load returns the session stored under key, or nil when there is none.
func (r *SessionRepository) Load(key string) (*models.Session, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expires_at, user_id, email, name
		FROM auth_sessions
		WHERE storage_key = ?
	`

	var (
		s         models.Session
		expiresAt sql.NullTime
	)

	err := r.db.QueryRow(query, key).Scan(
		&s.AccessToken,
		&s.RefreshToken,
		&s.TokenType,
		&expiresAt,
		&s.User.ID,
		&s.User.Email,
		&s.User.Name,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if expiresAt.Valid {
		s.ExpiresAt = expiresAt.Time
	}

	return &s, nil
}

// Clear removes the session stored under key. Clearing a missing key is not an error.
func (r *SessionRepository) Clear(key string) error {
	if _, err := r.db.Exec(`DELETE FROM auth_sessions WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
