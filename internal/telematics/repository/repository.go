package repository

import (
	"context"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/domain"
)

// Repository persists normalized telemetry records.
type Repository interface {
	Insert(ctx context.Context, r *domain.Record) error
}
