package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/xeenux-portal/internal/apperror"
	"github.com/sakif/xeenux-portal/internal/model"
	"github.com/sakif/xeenux-portal/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// Create inserts a new session. An empty ID is filled with a fresh xid.
func (db *DB) Create(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		s.ID = xid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	access, refresh, tokenType, expiry := splitToken(s.Token)
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("sqlite: encoding session user: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, access_token, refresh_token, token_type, expiry, user_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, access, refresh, tokenType, expiry, string(userJSON), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session %s: %w", s.ID, err)
	}
	return nil
}

// Get retrieves a session by id.
// Returns apperror.ErrNotFound if no session exists with that id.
func (db *DB) Get(ctx context.Context, id string) (*model.Session, error) {
	var (
		s        model.Session
		tok      oauth2.Token
		expiry   sql.NullTime
		userJSON string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, access_token, refresh_token, token_type, expiry, user_json, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(
		&s.ID,
		&tok.AccessToken,
		&tok.RefreshToken,
		&tok.TokenType,
		&expiry,
		&userJSON,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	if tok.AccessToken != "" || tok.RefreshToken != "" {
		s.Token = &tok
	}
	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		return nil, fmt.Errorf("sqlite: decoding user of session %s: %w", id, err)
	}

	return &s, nil
}

// Save overwrites the token pair and user of an existing session.
func (db *DB) Save(ctx context.Context, s *model.Session) error {
	s.UpdatedAt = time.Now().UTC()

	access, refresh, tokenType, expiry := splitToken(s.Token)
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("sqlite: encoding session user: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE sessions
		 SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, user_json = ?, updated_at = ?
		 WHERE id = ?`,
		access, refresh, tokenType, expiry, string(userJSON), s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating session %s: %w", s.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("session", s.ID)
	}
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error: logout
// must succeed even if the session was already swept.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes sessions not touched since before and returns
// their ids.
func (db *DB) DeleteExpired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`DELETE FROM sessions WHERE updated_at < ? RETURNING id`, before.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning expired session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	return ids, nil
}

func splitToken(t *oauth2.Token) (access, refresh, tokenType string, expiry sql.NullTime) {
	if t == nil {
		return "", "", "Bearer", sql.NullTime{}
	}
	tokenType = t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	if !t.Expiry.IsZero() {
		expiry = sql.NullTime{Time: t.Expiry.UTC(), Valid: true}
	}
	return t.AccessToken, t.RefreshToken, tokenType, expiry
}
