package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/transport"
)

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"wss://example.execute-api.ap-southeast-1.amazonaws.com/production", true},
		{"ws://localhost:8080/feed", true},
		{"https://example.com", false},
		{"ws://", false},
		{"://bad", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateURL(tc.url)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateURL(%q) = %v, want ok=%t", tc.url, err, tc.ok)
		}
	}
}

// feedServer accepts one connection, sends msgs, then closes with the given code.
func feedServer(t *testing.T, msgs []string, code websocket.StatusCode, reason string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		ctx := r.Context()
		for _, m := range msgs {
			if err := c.Write(ctx, websocket.MessageText, []byte(m)); err != nil {
				t.Errorf("Write: %v", err)
				return
			}
		}
		_ = c.Close(code, reason)
	}))
}

func TestDialer_ReadUntilClose(t *testing.T) {
	srv := feedServer(t, []string{`{"a":1}`, `{"b":2}`}, websocket.StatusGoingAway, "rotating")
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &Dialer{}
	conn, err := d.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	for _, want := range []string{`{"a":1}`, `{"b":2}`} {
		got, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(got) != want {
			t.Errorf("Read = %s, want %s", got, want)
		}
	}

	_, err = conn.Read(ctx)
	var ce *transport.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("Read after close = %v, want *transport.CloseError", err)
	}
	if ce.Code != int(websocket.StatusGoingAway) || ce.Reason != "rotating" {
		t.Errorf("close = %d %q, want 1001 rotating", ce.Code, ce.Reason)
	}
}

func TestDialer_RejectsBadURL(t *testing.T) {
	d := &Dialer{}
	if _, err := d.Dial(context.Background(), "http://example.com"); err == nil {
		t.Fatal("Dial should reject non-websocket schemes")
	}
}

func TestDialer_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := &Dialer{HandshakeTimeout: time.Second}
	if _, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")); err == nil {
		t.Fatal("Dial should fail when the server refuses the upgrade")
	}
}

func TestConn_PingFailureEndsRead(t *testing.T) {
	release := make(chan struct{})
	// The peer never reads, so it never answers pings.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		defer c.CloseNow()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := (&Dialer{}).Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	readErr := make(chan error, 1)
	go func() {
		_, err := conn.Read(ctx)
		readErr <- err
	}()

	pingCtx, pingCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer pingCancel()
	if err := conn.Ping(pingCtx); err == nil {
		t.Fatal("Ping should fail against a peer that never answers")
	}

	select {
	case err := <-readErr:
		var ce *transport.CloseError
		if !errors.As(err, &ce) {
			t.Fatalf("Read = %v, want *transport.CloseError", err)
		}
		if ce.Code != transport.CodeAbnormal || !strings.Contains(ce.Reason, "keep-alive failed") {
			t.Errorf("close = %d %q, want 1006 keep-alive failed", ce.Code, ce.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read still blocked after the ping failed")
	}
}
