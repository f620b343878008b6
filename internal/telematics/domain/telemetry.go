package domain

import (
	"encoding/json"
	"time"
)

// Fields is a keyed sub-record of vendor values. Values are the vendor's JSON kept verbatim.
type Fields map[string]json.RawMessage

// Location is the position part of a telemetry message. Coordinates are echoed byte-exact.
type Location struct {
	Latitude   json.RawMessage `json:"latitude"`
	Longitude  json.RawMessage `json:"longitude"`
	Timestamp  json.RawMessage `json:"timestamp,omitempty"`
	Speed      json.RawMessage `json:"speed,omitempty"`
	Altitude   json.RawMessage `json:"altitude,omitempty"`
	Heading    json.RawMessage `json:"heading,omitempty"`
	Satellites json.RawMessage `json:"satellites,omitempty"`
}

// Normalized is the sparse projection of a vendor envelope.
// Every sub-record is either nil or holds at least one key.
type Normalized struct {
	DeviceID     string
	VehicleID    string
	SerialNumber string
	Location     *Location
	Fuel         Fields
	// Charge and Trip have columns but no vendor raw-state key maps to them yet; they stay nil.
	Charge       Fields
	Trip         Fields
	Engine       Fields
	State        Fields
	Odometer     Fields
	Misc         Fields
}

// Record is one stored row of telematic_data_streams: the normalized projection plus the raw envelope.
type Record struct {
	ID         int64
	TenantID   string
	SessionID  string // empty when session tracking is unavailable
	UpdateType string
	Timestamp  string
	Raw        json.RawMessage
	Data       Normalized
	CreatedAt  time.Time
}
