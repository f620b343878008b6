// Package session records connection-session lifecycle metadata for the upstream feed.
package session

import (
	"context"
	"log"

	"github.com/jonboulle/clockwork"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/session/domain"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/session/repository"
)

// Recorder opens, touches and updates session rows. Every operation is best-effort:
// sink failures are logged and never returned, so session tracking can not stall the bridge.
type Recorder struct {
	repo     repository.Repository
	tenantID string
	url      string
	clock    clockwork.Clock
}

// NewRecorder returns a Recorder writing sessions for tenantID and the upstream url.
// clock may be nil; then the real clock is used.
func NewRecorder(repo repository.Repository, tenantID, url string, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{repo: repo, tenantID: tenantID, url: url, clock: clock}
}

// Open creates a session in the connected state and returns its id.
// It returns "" when the sink is unavailable; the bridge then runs without session tracking.
func (r *Recorder) Open(ctx context.Context) string {
	if r == nil || r.repo == nil {
		return ""
	}
	s := &domain.Session{
		TenantID:     r.tenantID,
		Status:       domain.StatusConnected,
		ConnectedAt:  r.clock.Now().UTC(),
		WebSocketURL: r.url,
	}
	if err := r.repo.Create(ctx, s); err != nil {
		log.Printf("session: failed to create session: %v", err)
		return ""
	}
	log.Printf("session: created %s", s.ID)
	return s.ID
}

// Touch counts one inbound message on the session. No-op for an empty id.
func (r *Recorder) Touch(ctx context.Context, id string) {
	if r == nil || r.repo == nil || id == "" {
		return
	}
	if err := r.repo.Touch(ctx, id, r.clock.Now().UTC()); err != nil {
		log.Printf("session: failed to touch %s: %v", id, err)
	}
}

// SetStatus records a status transition with an optional detail. No-op for an empty id.
func (r *Recorder) SetStatus(ctx context.Context, id string, status domain.Status, detail string) {
	if r == nil || r.repo == nil || id == "" {
		return
	}
	if err := r.repo.UpdateStatus(ctx, id, status, detail, r.clock.Now().UTC()); err != nil {
		log.Printf("session: failed to set %s status %s: %v", id, status, err)
	}
}
