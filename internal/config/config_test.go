package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets every key Load reads so host env does not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "PORT", "GRPC_ADDR", "UPSTREAM_WS_URL", "TENANT_ID", "DATABASE_URL", "RUN_MIGRATIONS",
		"RECONNECT_MAX_ATTEMPTS", "RECONNECT_BASE_DELAY", "RECONNECT_MAX_DELAY", "PING_INTERVAL",
		"INITIAL_CONNECT_DELAY", "SINK_TIMEOUT", "SINK_MAX_IN_FLIGHT", "SHUTDOWN_TIMEOUT",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "KAFKA_BROKERS",
		"TELEMETRY_KAFKA_TOPIC", "LOKI_URL", "KAFKA_GROUP_ID",
		"CONTROL_JWT_PUBLIC_KEY", "CONTROL_JWT_ISSUER", "CONTROL_JWT_AUDIENCE",
	} {
		t.Setenv(k, "") // restores the original value on cleanup
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want :3000", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":8081" {
		t.Errorf("GRPCAddr = %q, want :8081", cfg.GRPCAddr)
	}
	if cfg.UpstreamURL != DefaultUpstreamURL {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}
	if cfg.TenantID != "default" {
		t.Errorf("TenantID = %q, want default", cfg.TenantID)
	}
	if cfg.ReconnectMaxAttempts != 10 {
		t.Errorf("ReconnectMaxAttempts = %d, want 10", cfg.ReconnectMaxAttempts)
	}
	durations := map[string]struct{ got, want time.Duration }{
		"ReconnectBaseDelay":  {cfg.ReconnectBaseDelay, time.Second},
		"ReconnectMaxDelay":   {cfg.ReconnectMaxDelay, 30 * time.Second},
		"PingInterval":        {cfg.PingInterval, 30 * time.Second},
		"InitialConnectDelay": {cfg.InitialConnectDelay, time.Second},
		"SinkTimeout":         {cfg.SinkTimeout, 5 * time.Second},
		"ShutdownTimeout":     {cfg.ShutdownTimeout, 10 * time.Second},
	}
	for name, d := range durations {
		if d.got != d.want {
			t.Errorf("%s = %v, want %v", name, d.got, d.want)
		}
	}
	if cfg.SinkMaxInFlight != 8 {
		t.Errorf("SinkMaxInFlight = %d, want 8", cfg.SinkMaxInFlight)
	}
	if cfg.TelemetryKafkaTopic != "bridge-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q", cfg.TelemetryKafkaTopic)
	}
	if cfg.RunMigrations || cfg.ControlAuthEnabled() {
		t.Error("migrations and control auth should default to off")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "127.0.0.1:4000")
	t.Setenv("UPSTREAM_WS_URL", "ws://localhost:9000/feed")
	t.Setenv("TENANT_ID", "fleet-7")
	t.Setenv("RECONNECT_MAX_ATTEMPTS", "3")
	t.Setenv("RECONNECT_BASE_DELAY", "250ms")
	t.Setenv("SINK_MAX_IN_FLIGHT", "2")
	t.Setenv("GRPC_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:4000" || cfg.UpstreamURL != "ws://localhost:9000/feed" || cfg.TenantID != "fleet-7" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.GRPCAddr != "" {
		t.Errorf("GRPCAddr = %q, want empty (disabled)", cfg.GRPCAddr)
	}
	if cfg.ReconnectMaxAttempts != 3 || cfg.ReconnectBaseDelay != 250*time.Millisecond || cfg.SinkMaxInFlight != 2 {
		t.Errorf("reconnect/sink overrides not applied: %+v", cfg)
	}
}

func TestLoad_PortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8088")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8088" {
		t.Errorf("HTTPAddr = %q, want :8088", cfg.HTTPAddr)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"http upstream", map[string]string{"UPSTREAM_WS_URL": "https://example.com"}},
		{"unparseable upstream", map[string]string{"UPSTREAM_WS_URL": "wss://"}},
		{"negative attempts", map[string]string{"RECONNECT_MAX_ATTEMPTS": "-1"}},
		{"base above max", map[string]string{"RECONNECT_BASE_DELAY": "1m", "RECONNECT_MAX_DELAY": "30s"}},
		{"zero ping", map[string]string{"PING_INTERVAL": "0s"}},
		{"zero in flight", map[string]string{"SINK_MAX_IN_FLIGHT": "0"}},
		{"migrations without db", map[string]string{"RUN_MIGRATIONS": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"localhost:9092", 1},
		{" a:9092 , b:9092 ,", 2},
	}
	for _, tt := range tests {
		cfg := &Config{TelemetryKafkaBrokers: tt.in}
		if got := cfg.TelemetryKafkaBrokersList(); len(got) != tt.want {
			t.Errorf("TelemetryKafkaBrokersList(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
	var nilCfg *Config
	if nilCfg.TelemetryKafkaBrokersList() != nil {
		t.Error("nil config should return nil")
	}
}
