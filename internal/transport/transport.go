// Package transport defines the upstream message source consumed by the bridge.
//
// Dial success is the "open" event. Conn.Read delivers messages until the connection
// ends, at which point it returns a *CloseError carrying the close code and reason.
// A failed Ping is reported to the caller and the implementation drops the connection,
// so the pending Read returns a *CloseError after every transport error.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Close codes used by the bridge, from RFC 6455.
const (
	CodeNormal     = 1000
	CodeGoingAway  = 1001
	CodeAbnormal   = 1006
	CodeNoStatus   = 1005
	CodeInternal   = 1011
	CodeDialFailed = CodeAbnormal
)

// Dialer opens upstream connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is an open upstream connection.
type Conn interface {
	// Read blocks until the next message. It returns a *CloseError once the connection ends.
	Read(ctx context.Context) ([]byte, error)
	// Ping sends a keep-alive ping and waits for the pong. A failure drops the connection.
	Ping(ctx context.Context) error
	// Close closes the connection with the given code and reason.
	Close(code int, reason string) error
}

// CloseError reports why a connection ended.
type CloseError struct {
	Code   int
	Reason string
	Err    error // underlying cause for abnormal closes; may be nil
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed: %d - %s", e.Code, e.Reason)
}

func (e *CloseError) Unwrap() error { return e.Err }

// AsCloseError converts any error returned by Read into a CloseError.
// Errors that carry no close frame are reported as abnormal closure (1006).
func AsCloseError(err error) *CloseError {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return &CloseError{Code: CodeAbnormal, Reason: reason, Err: err}
}
