package bridge

// State is the connection manager's lifecycle state.
type State string

const (
	StateIdle               State = "idle"
	StateConnecting         State = "connecting"
	StateConnected          State = "connected"
	StateClosing            State = "closing"
	StateReconnectScheduled State = "reconnect_scheduled"
	StateFailed             State = "failed"
)

// WebSocketStatus maps the state to the upstream socket readyState names reported by /health.
func (s State) WebSocketStatus() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateIdle, StateReconnectScheduled, StateFailed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// busy reports whether a Connect call must be ignored in this state.
func (s State) busy() bool {
	return s == StateConnecting || s == StateConnected || s == StateClosing
}
