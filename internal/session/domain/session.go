package domain

import "time"

// Status is the lifecycle status of a connection session.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
	StatusFailed       Status = "failed"
)

// Session is one period of upstream connectivity. Rows are appended per successful connect and never deleted.
type Session struct {
	ID            string
	TenantID      string
	Status        Status
	ConnectedAt   time.Time
	LastMessageAt *time.Time // nil until the first message or status update
	MessageCount  int64
	ErrorMessage  *string
	WebSocketURL  string
}
