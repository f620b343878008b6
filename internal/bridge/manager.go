// Package bridge owns the single upstream WebSocket connection: it dials, reads and stores
// vehicle telemetry, tracks the connection session, and reconnects with exponential backoff.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/session"
	sessiondomain "github.com/moveo-mobility/aws-websocket-bridge/internal/session/domain"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/normalize"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/repository"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/transport"
)

// Defaults applied to zero Options fields.
const (
	DefaultMaxAttempts  = 10
	DefaultBaseDelay    = time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultSinkTimeout  = 5 * time.Second
	DefaultMaxInFlight  = 8
)

const (
	shutdownReason  = "Service shutdown"
	exhaustedReason = "Max reconnection attempts exceeded"
)

// Options configures a Manager. Dialer and URL are required; the sinks may be nil.
type Options struct {
	URL      string
	TenantID string
	Dialer   transport.Dialer
	Records  repository.Repository
	Sessions *session.Recorder
	Emitter  telemetry.EventEmitter
	Clock    clockwork.Clock

	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	PingInterval time.Duration
	SinkTimeout  time.Duration
	MaxInFlight  int

	// OnStateChange is called with the manager lock held; it must not call back into the Manager.
	OnStateChange func(State)
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.SinkTimeout <= 0 {
		o.SinkTimeout = DefaultSinkTimeout
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = DefaultMaxInFlight
	}
}

// Status is a point-in-time snapshot of the manager.
type Status struct {
	State       State
	Connected   bool
	SessionID   string
	Attempts    int
	ConnectedAt time.Time
}

// Manager maintains one upstream connection. All exported methods are safe for concurrent use.
type Manager struct {
	opts    Options
	clock   clockwork.Clock
	metrics *metrics
	tasks   errgroup.Group
	conns   sync.WaitGroup

	mu          sync.Mutex
	state       State
	conn        transport.Conn
	cancel      context.CancelFunc
	timer       clockwork.Timer
	sessionID   string
	attempts    int
	connectedAt time.Time
	stopped     bool
}

// NewManager returns an idle Manager.
func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	m := &Manager{
		opts:    opts,
		clock:   opts.Clock,
		metrics: newMetrics(),
		state:   StateIdle,
	}
	m.tasks.SetLimit(opts.MaxInFlight)
	return m
}

// Status returns a snapshot of the connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:       m.state,
		Connected:   m.state == StateConnected,
		SessionID:   m.sessionID,
		Attempts:    m.attempts,
		ConnectedAt: m.connectedAt,
	}
}

// Connect starts a connection attempt. It is a no-op while connecting or connected and after Shutdown.
// A pending reconnect is cancelled in favour of connecting now; from the failed state the
// attempt counter starts over. The connection outlives ctx; only its values are kept.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.state.busy() {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.state == StateFailed {
		m.attempts = 0
	}
	m.startLocked(context.WithoutCancel(ctx))
}

// Shutdown stops reconnecting, closes the upstream connection, waits for in-flight session
// writes (bounded by ctx) and records the final disconnected status.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn, cancel, sessionID := m.conn, m.cancel, m.sessionID
	m.conn, m.cancel = nil, nil
	m.setStateLocked(StateClosing)
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(transport.CodeNormal, shutdownReason); err != nil {
			log.Printf("bridge: close upstream: %v", err)
		}
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.conns.Wait()
		_ = m.tasks.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("bridge: shutdown: %w", ctx.Err())
		log.Printf("%v; abandoning in-flight session writes", err)
	}

	sinkCtx, sinkCancel := m.sinkContext()
	m.opts.Sessions.SetStatus(sinkCtx, sessionID, sessiondomain.StatusDisconnected, shutdownReason)
	m.emit(sessionID, telemetry.EventShutdown, nil)
	sinkCancel()

	m.mu.Lock()
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
	log.Println("bridge: shut down")
	return err
}

// startLocked enters connecting and runs the connection in its own goroutine.
func (m *Manager) startLocked(ctx context.Context) {
	m.setStateLocked(StateConnecting)
	connCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.conns.Add(1)
	go m.run(connCtx)
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(s)
	}
}

// run dials, opens the session and reads until the connection ends.
func (m *Manager) run(ctx context.Context) {
	defer m.conns.Done()
	log.Printf("bridge: connecting to %s", m.opts.URL)

	conn, err := m.dial(ctx)
	if err != nil {
		if errors.Is(err, errDialPanic) {
			log.Printf("%v", err)
			m.mu.Lock()
			if !m.stopped {
				m.setStateLocked(StateIdle)
			}
			m.mu.Unlock()
			return
		}
		log.Printf("bridge: dial %s: %v", m.opts.URL, err)
		m.handleClose(nil, transport.AsCloseError(err))
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = conn.Close(transport.CodeGoingAway, shutdownReason)
		return
	}
	m.conn = conn
	m.attempts = 0
	m.connectedAt = m.clock.Now().UTC()
	m.setStateLocked(StateConnected)
	m.mu.Unlock()
	log.Printf("bridge: connected to %s", m.opts.URL)

	// Messages are not read until the session exists so every record carries its id.
	// A failed Open leaves the connection untracked rather than reusing the previous session.
	sinkCtx, sinkCancel := m.sinkContext()
	id := m.opts.Sessions.Open(sinkCtx)
	sinkCancel()
	m.mu.Lock()
	m.sessionID = id
	m.mu.Unlock()
	m.emit(id, telemetry.EventConnected, map[string]string{"url": m.opts.URL})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	pingDone := make(chan struct{})
	go func() {
		defer close(pingDone)
		m.keepAlive(pingCtx, conn)
	}()

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			stopPing()
			<-pingDone
			// Queued touch and error writes land before the disconnected status.
			_ = m.tasks.Wait()
			m.handleClose(conn, transport.AsCloseError(err))
			return
		}
		_ = m.handleMessage(data)
	}
}

// dial calls the Dialer, converting a panic into errDialPanic.
func (m *Manager) dial(ctx context.Context) (conn transport.Conn, err error) {
	defer func() {
		if r := recover(); r != nil {
			conn, err = nil, fmt.Errorf("%w: %v", errDialPanic, r)
		}
	}()
	return m.opts.Dialer.Dial(ctx, m.opts.URL)
}

func (m *Manager) keepAlive(ctx context.Context, conn transport.Conn) {
	ticker := m.clock.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			pingCtx, cancel := context.WithTimeout(ctx, m.opts.PingInterval)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				m.transportError(err)
			}
		}
	}
}

// handleMessage decodes, normalizes and stores one inbound message. Failures are absorbed:
// they are logged and reported on the session, and the connection stays up.
func (m *Manager) handleMessage(data []byte) error {
	m.mu.Lock()
	connected := m.conn != nil
	sessionID := m.sessionID
	m.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	m.metrics.add(m.metrics.received)

	env, err := normalize.Decode(data, m.clock.Now())
	if err != nil {
		return m.messageFailed(sessionID, "decode", fmt.Errorf("%w: %w", ErrDecode, err))
	}
	rec := env.Record(m.opts.TenantID, sessionID)
	if m.opts.Records != nil {
		ctx, cancel := m.sinkContext()
		err = m.opts.Records.Insert(ctx, rec)
		cancel()
	}
	// A received message counts on the session even when the insert failed.
	m.goSession(func(ctx context.Context) {
		m.opts.Sessions.Touch(ctx, sessionID)
	})
	if err != nil {
		return m.messageFailed(sessionID, "sink", fmt.Errorf("%w: %w", ErrSink, err))
	}
	if m.opts.Records != nil {
		m.metrics.add(m.metrics.stored)
	}
	return nil
}

func (m *Manager) messageFailed(sessionID, reason string, err error) error {
	log.Printf("%v", err)
	m.metrics.add(m.metrics.failed, attribute.String("reason", reason))
	detail := err.Error()
	m.goSession(func(ctx context.Context) {
		m.opts.Sessions.SetStatus(ctx, sessionID, sessiondomain.StatusError, detail)
	})
	m.emit(sessionID, telemetry.EventMessageFailed, map[string]string{"reason": reason, "error": detail})
	return err
}

// transportError records a socket-level error. The transport closes the connection itself,
// so teardown is left to the close that follows.
func (m *Manager) transportError(cause error) {
	err := fmt.Errorf("%w: %w", ErrTransport, cause)
	log.Printf("%v", err)
	sessionID := m.Status().SessionID
	detail := err.Error()
	m.goSession(func(ctx context.Context) {
		m.opts.Sessions.SetStatus(ctx, sessionID, sessiondomain.StatusError, detail)
	})
	m.emit(sessionID, telemetry.EventTransportError, map[string]string{"error": cause.Error()})
}

// handleClose runs once per ended connection or failed dial; conn is nil for the latter.
// It records the disconnect and then either schedules the next attempt or gives up.
func (m *Manager) handleClose(conn transport.Conn, ce *transport.CloseError) {
	detail := fmt.Sprintf("Connection closed: %d - %s", ce.Code, ce.Reason)

	m.mu.Lock()
	if conn != nil && m.conn == conn {
		m.conn = nil
	}
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateClosing)
	sessionID := m.sessionID
	m.mu.Unlock()

	log.Printf("bridge: %s", detail)
	m.metrics.add(m.metrics.closes, attribute.Int("code", ce.Code))
	ctx, cancel := m.sinkContext()
	defer cancel()
	m.opts.Sessions.SetStatus(ctx, sessionID, sessiondomain.StatusDisconnected, detail)
	m.emit(sessionID, telemetry.EventDisconnected, map[string]any{"code": ce.Code, "reason": ce.Reason})

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	attempts := m.attempts
	if attempts < m.opts.MaxAttempts {
		delay := Backoff(attempts, m.opts.BaseDelay, m.opts.MaxDelay)
		m.setStateLocked(StateReconnectScheduled)
		m.timer = m.clock.AfterFunc(delay, m.reconnect)
		m.mu.Unlock()

		log.Printf("bridge: reconnecting in %v (attempt %d/%d)", delay, attempts+1, m.opts.MaxAttempts)
		m.metrics.add(m.metrics.reconnects)
		m.emit(sessionID, telemetry.EventReconnectScheduled,
			map[string]any{"attempt": attempts + 1, "delay_ms": delay.Milliseconds()})
		return
	}
	m.setStateLocked(StateFailed)
	m.mu.Unlock()

	log.Printf("%v (%d)", ErrRetriesExhausted, m.opts.MaxAttempts)
	m.opts.Sessions.SetStatus(ctx, sessionID, sessiondomain.StatusFailed, exhaustedReason)
	m.emit(sessionID, telemetry.EventRetriesExhausted, map[string]int{"attempts": attempts})
}

// reconnect is the reconnect timer callback.
func (m *Manager) reconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.state != StateReconnectScheduled {
		return
	}
	m.timer = nil
	m.attempts++
	m.startLocked(context.Background())
}

// goSession runs a session write on the bounded task group; Go blocks while the group is full.
// The recorder logs its own failures, so tasks only guard against panics.
func (m *Manager) goSession(fn func(ctx context.Context)) {
	if m.opts.Sessions == nil {
		return
	}
	m.tasks.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("bridge: session write panicked: %v", r)
			}
		}()
		ctx, cancel := m.sinkContext()
		defer cancel()
		fn(ctx)
		return nil
	})
}

func (m *Manager) sinkContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.SinkTimeout)
}

func (m *Manager) emit(sessionID, eventType string, metadata any) {
	if m.opts.Emitter == nil {
		return
	}
	telemetry.EmitAsync(m.opts.Emitter,
		telemetry.NewEvent(m.opts.TenantID, sessionID, eventType, metadata, m.clock.Now()))
}
