// Package interceptors holds the unary interceptors of the bridge's gRPC server.
package interceptors

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry"
)

// EventGRPCRequest is emitted once per non-skipped RPC.
const EventGRPCRequest = "grpc_request"

// SourceGRPC is the Source of interceptor events.
const SourceGRPC = "grpc_interceptor"

// grpcRequestMetadata is the JSON shape stored in Event.Metadata for grpc_request events.
type grpcRequestMetadata struct {
	FullMethod string `json:"full_method"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// TelemetryUnary returns a unary server interceptor that emits a bridge event after each RPC.
// Best-effort: emit failures are logged by EmitAsync and never fail the RPC. A nil emitter no-ops.
// skipMethods is the set of full method names to not emit.
func TelemetryUnary(emitter telemetry.EventEmitter, tenantID string, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		event := telemetry.NewEvent(tenantID, "", EventGRPCRequest, grpcRequestMetadata{
			FullMethod: info.FullMethod,
			StatusCode: status.Code(err).String(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   ClientIP(ctx),
		}, start)
		event.Source = SourceGRPC
		telemetry.EmitAsync(emitter, event)
		return resp, err
	}
}

// RecoveryUnary turns a handler panic into codes.Internal and logs the stack.
func RecoveryUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("interceptors: panic in %s: %v\n%s", info.FullMethod, r, debug.Stack())
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
