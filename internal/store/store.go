package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"bookcourier/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// ErrSessionNotFound is returned when no live session has the given id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists BFF sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.SessionRecord) error
	GetSession(ctx context.Context, id string) (*models.SessionRecord, error)
	UpdateSession(ctx context.Context, s *models.SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate creates the sessions table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

func (s *Store) CreateSession(ctx context.Context, rec *models.SessionRecord) error {
	query := `
		INSERT INTO sessions (id, uid, email, display_name, photo_url, id_token, refresh_token, token_expiry, expires_at)
		VALUES (:id, :uid, :email, :display_name, :photo_url, :id_token, :refresh_token, :token_expiry, :expires_at)
		RETURNING created_at`

	rows, err := s.db.NamedQueryContext(ctx, query, rec)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&rec.CreatedAt); err != nil {
			return fmt.Errorf("failed to read session timestamps: %w", err)
		}
	}
	return rows.Err()
}

// GetSession returns a live session; expired rows are reported as not found.
func (s *Store) GetSession(ctx context.Context, id string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT * FROM sessions WHERE id = $1 AND expires_at > NOW()", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateSession stores refreshed tokens and profile fields.
func (s *Store) UpdateSession(ctx context.Context, rec *models.SessionRecord) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE sessions
		SET display_name = :display_name, photo_url = :photo_url, id_token = :id_token,
		    refresh_token = :refresh_token, token_expiry = :token_expiry
		WHERE id = :id`, rec)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
