// Package server builds the bridge's gRPC server.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/server/interceptors"
	"github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry"
)

// Deps holds the optional dependencies of the gRPC server.
type Deps struct {
	// Health is the standard health service; a new one is created when nil.
	Health *health.Server
	// Emitter receives a grpc_request event per RPC. If nil, no events are emitted.
	Emitter  telemetry.EventEmitter
	TenantID string
	// SkipEvents lists full method names that emit no grpc_request event.
	SkipEvents map[string]bool
}

// NewGRPCServer returns a server instrumented with otelgrpc, with panic recovery and
// per-RPC events, and with the health service registered. It returns the health server too.
func NewGRPCServer(deps Deps) (*grpc.Server, *health.Server) {
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryUnary(),
			interceptors.TelemetryUnary(deps.Emitter, deps.TenantID, deps.SkipEvents),
		),
	)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
