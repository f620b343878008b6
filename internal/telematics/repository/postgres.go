package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/domain"
)

const insertRecordSQL = `INSERT INTO telematic_data_streams (
	tenant_id, session_id, update_type, timestamp, raw_telemetry,
	device_id, vehicle_id, serial_number,
	location_data, fuel_data, charge_data, trip_data, engine_data, state_data, odometer_data, misc_data,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a record repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert persists the record. Absent sub-records are stored as NULL. It sets r.ID on success.
func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	d := rec.Data
	location, err := jsonColumn(d.Location, d.Location != nil)
	if err != nil {
		return err
	}
	args := []any{
		rec.TenantID,
		nullString(rec.SessionID),
		rec.UpdateType,
		rec.Timestamp,
		string(rec.Raw),
		nullString(d.DeviceID),
		nullString(d.VehicleID),
		nullString(d.SerialNumber),
		location,
	}
	for _, f := range []domain.Fields{d.Fuel, d.Charge, d.Trip, d.Engine, d.State, d.Odometer, d.Misc} {
		v, err := jsonColumn(f, len(f) > 0)
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	args = append(args, rec.CreatedAt)
	return r.db.QueryRowContext(ctx, insertRecordSQL, args...).Scan(&rec.ID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// jsonColumn encodes v for a JSONB column, or returns nil (SQL NULL) for an absent sub-record.
func jsonColumn(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
