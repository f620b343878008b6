package repository

import (
	"context"
	"time"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/session/domain"
)

// Repository defines persistence for connection sessions.
type Repository interface {
	// Create persists s and assigns s.ID.
	Create(ctx context.Context, s *domain.Session) error
	// Touch increments the message counter and sets last_message_at.
	Touch(ctx context.Context, id string, at time.Time) error
	// UpdateStatus sets status and last_message_at, and error_message when errorMessage is non-empty.
	UpdateStatus(ctx context.Context, id string, status domain.Status, errorMessage string, at time.Time) error
}
