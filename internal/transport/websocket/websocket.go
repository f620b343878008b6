// Package websocket implements transport.Dialer over github.com/coder/websocket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/transport"
)

// readLimit caps a single vendor message. Telemetry envelopes are a few KB.
const readLimit = 1 << 20

// Dialer dials WebSocket connections.
type Dialer struct {
	// HandshakeTimeout bounds the opening handshake; zero means 15s.
	HandshakeTimeout time.Duration
	// Header is sent with the handshake request (e.g. authorization for the feed).
	Header http.Header
	// HTTPClient is used for the handshake; nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// ValidateURL reports whether u is a usable ws:// or wss:// URL.
func ValidateURL(u string) error {
	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("websocket: invalid url %q: %w", u, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return fmt.Errorf("websocket: url %q must use ws or wss", u)
	}
	if parsed.Host == "" {
		return fmt.Errorf("websocket: url %q has no host", u)
	}
	return nil
}

// Dial opens a connection to u. The returned connection is open.
func (d *Dialer) Dial(ctx context.Context, u string) (transport.Conn, error) {
	if err := ValidateURL(u); err != nil {
		return nil, err
	}
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, resp, err := websocket.Dial(dialCtx, u, &websocket.DialOptions{
		HTTPHeader: d.Header,
		HTTPClient: d.HTTPClient,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", u, err)
	}
	c.SetReadLimit(readLimit)
	return &conn{c: c}, nil
}

type conn struct {
	c *websocket.Conn

	mu      sync.Mutex
	pingErr error
}

// Read returns the next text or binary message.
func (c *conn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.c.Read(ctx)
	if err != nil {
		c.mu.Lock()
		pingErr := c.pingErr
		c.mu.Unlock()
		if pingErr != nil {
			return nil, &transport.CloseError{
				Code:   transport.CodeAbnormal,
				Reason: "keep-alive failed: " + pingErr.Error(),
				Err:    err,
			}
		}
		return nil, closeError(err)
	}
	return data, nil
}

// Ping waits for the pong. The library leaves the socket open when the wait fails, so a
// failed ping drops the connection here and the pending Read returns a 1006 close.
func (c *conn) Ping(ctx context.Context) error {
	err := c.c.Ping(ctx)
	if err != nil {
		c.mu.Lock()
		if c.pingErr == nil {
			c.pingErr = err
		}
		c.mu.Unlock()
		_ = c.c.CloseNow()
	}
	return err
}

func (c *conn) Close(code int, reason string) error {
	return c.c.Close(websocket.StatusCode(code), reason)
}

func closeError(err error) *transport.CloseError {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return &transport.CloseError{Code: int(ce.Code), Reason: ce.Reason, Err: err}
	}
	return transport.AsCloseError(err)
}
