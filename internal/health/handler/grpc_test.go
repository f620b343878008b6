package handler

import (
	"context"
	"testing"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/bridge"
)

func check(t *testing.T, srv *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestReporter_TracksConnection(t *testing.T) {
	srv := health.NewServer()
	r := NewReporter(srv)

	for _, svc := range []string{"", UpstreamService} {
		if got := check(t, srv, svc); got != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Errorf("initial %q = %v, want NOT_SERVING", svc, got)
		}
	}

	r.Observe(bridge.StateConnected)
	for _, svc := range []string{"", UpstreamService} {
		if got := check(t, srv, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("connected %q = %v, want SERVING", svc, got)
		}
	}

	for _, s := range []bridge.State{bridge.StateClosing, bridge.StateReconnectScheduled, bridge.StateFailed} {
		r.Observe(s)
		if got := check(t, srv, UpstreamService); got != healthpb.HealthCheckResponse_NOT_SERVING {
			t.Errorf("%s = %v, want NOT_SERVING", s, got)
		}
	}
}

func TestReporter_Shutdown(t *testing.T) {
	srv := health.NewServer()
	r := NewReporter(srv)
	r.Shutdown()
	r.Observe(bridge.StateConnected)
	if got := check(t, srv, UpstreamService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("after shutdown = %v, want NOT_SERVING", got)
	}
}
