package handler

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/bridge"
)

// UpstreamService is the gRPC health service name that tracks the upstream connection.
const UpstreamService = "bridge.Upstream"

// Reporter mirrors the connection manager's state into the standard gRPC health service.
// Both the overall ("") and UpstreamService statuses are SERVING only while connected.
type Reporter struct {
	srv *health.Server
}

// NewReporter returns a Reporter over srv and marks everything NOT_SERVING until the first connect.
func NewReporter(srv *health.Server) *Reporter {
	r := &Reporter{srv: srv}
	r.Observe(bridge.StateIdle)
	return r
}

// Observe is a bridge.Options.OnStateChange hook.
func (r *Reporter) Observe(state bridge.State) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if state == bridge.StateConnected {
		st = healthpb.HealthCheckResponse_SERVING
	}
	r.srv.SetServingStatus("", st)
	r.srv.SetServingStatus(UpstreamService, st)
}

// Shutdown marks all services NOT_SERVING permanently.
func (r *Reporter) Shutdown() {
	r.srv.Shutdown()
}
