// Package telemetry emits bridge lifecycle events (connects, closes, retries, message failures)
// to observability backends. It is unrelated to the vehicle telemetry the bridge stores.
package telemetry

import (
	"encoding/json"
	"time"
)

// Event types emitted by the bridge.
const (
	EventConnected          = "upstream_connected"
	EventDisconnected       = "upstream_disconnected"
	EventTransportError     = "upstream_error"
	EventReconnectScheduled = "reconnect_scheduled"
	EventRetriesExhausted   = "reconnect_exhausted"
	EventMessageFailed      = "message_failed"
	EventShutdown           = "bridge_shutdown"
)

// SourceBridge is the Source of every event emitted by the connection manager.
const SourceBridge = "connection_manager"

// Event is one lifecycle event. Metadata is a JSON object with event-specific detail.
type Event struct {
	TenantID  string          `json:"tenantId"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event stamped with now; metadata is marshalled when non-nil.
func NewEvent(tenantID, sessionID, eventType string, metadata any, now time.Time) *Event {
	ev := &Event{
		TenantID:  tenantID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    SourceBridge,
		CreatedAt: now.UTC(),
	}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			ev.Metadata = b
		}
	}
	return ev
}
