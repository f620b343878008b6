package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/session/domain"
)

const (
	createSessionSQL = `INSERT INTO telematic_websocket_sessions
	(id, tenant_id, status, connected_at, last_message_at, message_count, error_message, websocket_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	touchSessionSQL = `UPDATE telematic_websocket_sessions
SET last_message_at = $2, message_count = COALESCE(message_count, 0) + 1
WHERE id = $1`

	updateStatusSQL = `UPDATE telematic_websocket_sessions
SET status = $2, last_message_at = $3, error_message = COALESCE($4, error_message)
WHERE id = $1`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The id is generated here, so callers never choose it.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, createSessionSQL,
		id,
		s.TenantID,
		string(s.Status),
		s.ConnectedAt,
		timeToNullTime(s.LastMessageAt),
		s.MessageCount,
		stringPtrToNull(s.ErrorMessage),
		s.WebSocketURL,
	)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// Touch records one more inbound message on the session.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, touchSessionSQL, id, at)
	return err
}

// UpdateStatus sets the session status. An empty errorMessage leaves the stored one untouched.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, errorMessage string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, updateStatusSQL, id, string(status), at,
		sql.NullString{String: errorMessage, Valid: errorMessage != ""})
	return err
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stringPtrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
