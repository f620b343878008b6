// Package handler exposes the bridge's health and control surface over HTTP and gRPC.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/bridge"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/security"
)

// ServiceName is reported by GET /health.
const ServiceName = "AWS WebSocket Bridge"

// Bridge is the connection manager surface the handlers need.
type Bridge interface {
	Status() bridge.Status
	Connect(ctx context.Context)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Service           string  `json:"service"`
	Connected         bool    `json:"connected"`
	WebSocketStatus   string  `json:"websocket_status"`
	State             string  `json:"state"`
	SessionID         *string `json:"session_id"`
	ReconnectAttempts int     `json:"reconnect_attempts"`
	Uptime            float64 `json:"uptime"`
	Timestamp         string  `json:"timestamp"`
}

// HTTP serves /health and /connect.
type HTTP struct {
	bridge   Bridge
	verifier *security.Verifier
	clock    clockwork.Clock
	started  time.Time
}

// NewHTTP returns the HTTP surface. verifier may be nil, leaving /connect open.
// clock may be nil; then the real clock is used.
func NewHTTP(b Bridge, verifier *security.Verifier, clock clockwork.Clock) *HTTP {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HTTP{bridge: b, verifier: verifier, clock: clock, started: clock.Now()}
}

// Routes returns the handler for all endpoints.
func (h *HTTP) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /connect", h.connect)
	return mux
}

func (h *HTTP) health(w http.ResponseWriter, r *http.Request) {
	st := h.bridge.Status()
	now := h.clock.Now()
	resp := HealthResponse{
		Service:           ServiceName,
		Connected:         st.Connected,
		WebSocketStatus:   st.State.WebSocketStatus(),
		State:             string(st.State),
		ReconnectAttempts: st.Attempts,
		Uptime:            now.Sub(h.started).Seconds(),
		Timestamp:         now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if st.SessionID != "" {
		resp.SessionID = &st.SessionID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTP) connect(w http.ResponseWriter, r *http.Request) {
	if h.verifier != nil {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		claims, err := h.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("handler: connect requested by %s", claims.Subject)
	}
	h.bridge.Connect(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Connection attempt initiated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: write response: %v", err)
	}
}
