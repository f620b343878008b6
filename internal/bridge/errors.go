package bridge

import "errors"

var (
	// ErrDecode wraps an inbound message that could not be decoded.
	ErrDecode = errors.New("bridge: decode failed")
	// ErrTransport wraps transport-level failures (ping timeouts, socket errors).
	ErrTransport = errors.New("bridge: transport error")
	// ErrSink wraps record sink failures.
	ErrSink = errors.New("bridge: sink error")
	// ErrRetriesExhausted is logged when the reconnect budget is spent.
	ErrRetriesExhausted = errors.New("bridge: max reconnection attempts exceeded")
	// ErrNotConnected is returned when a message arrives without a live connection.
	ErrNotConnected = errors.New("bridge: not connected")

	errDialPanic = errors.New("bridge: panic while dialing")
)
