// Package config loads and validates bridge config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultUpstreamURL is the production telematics feed.
const DefaultUpstreamURL = "wss://qk3ytibzxc.execute-api.ap-southeast-1.amazonaws.com/production"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address of the /health and /connect endpoints. Falls back to :$PORT, then :3000.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	Port     string `mapstructure:"PORT"`
	// GRPCAddr is the address of the gRPC health service; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`

	// UpstreamURL is the ws:// or wss:// telematics feed.
	UpstreamURL string `mapstructure:"UPSTREAM_WS_URL"`
	// TenantID is stamped on every session and record.
	TenantID string `mapstructure:"TENANT_ID"`
	// DatabaseURL is the Postgres DSN; when empty the bridge runs without sinks.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RunMigrations applies pending migrations at startup.
	RunMigrations bool `mapstructure:"RUN_MIGRATIONS"`

	ReconnectMaxAttempts int           `mapstructure:"RECONNECT_MAX_ATTEMPTS"`
	ReconnectBaseDelay   time.Duration `mapstructure:"RECONNECT_BASE_DELAY"`
	ReconnectMaxDelay    time.Duration `mapstructure:"RECONNECT_MAX_DELAY"`
	PingInterval         time.Duration `mapstructure:"PING_INTERVAL"`
	// InitialConnectDelay is the wait between the HTTP server starting and the first connect.
	InitialConnectDelay time.Duration `mapstructure:"INITIAL_CONNECT_DELAY"`
	// SinkTimeout bounds each session or record write.
	SinkTimeout time.Duration `mapstructure:"SINK_TIMEOUT"`
	// SinkMaxInFlight caps concurrent background session writes.
	SinkMaxInFlight int           `mapstructure:"SINK_MAX_IN_FLIGHT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// OTLPEndpoint is the OpenTelemetry collector; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Bridge events (optional). When Kafka brokers are set, lifecycle events are also written to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	TelemetryKafkaTopic   string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL      string `mapstructure:"LOKI_URL"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// ControlJWTPublicKey is a PEM public key or path to one. When set, POST /connect requires a bearer token.
	ControlJWTPublicKey string `mapstructure:"CONTROL_JWT_PUBLIC_KEY"`
	ControlJWTIssuer    string `mapstructure:"CONTROL_JWT_ISSUER"`
	ControlJWTAudience  string `mapstructure:"CONTROL_JWT_AUDIENCE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	// GRPC_ADDR= (empty) disables the gRPC listener, so empty values are kept.
	v.AllowEmptyEnv(true)

	v.SetDefault("HTTP_ADDR", "")
	v.SetDefault("PORT", "")
	v.SetDefault("GRPC_ADDR", ":8081")
	v.SetDefault("UPSTREAM_WS_URL", DefaultUpstreamURL)
	v.SetDefault("TENANT_ID", "default")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("RECONNECT_MAX_ATTEMPTS", 10)
	v.SetDefault("RECONNECT_BASE_DELAY", "1s")
	v.SetDefault("RECONNECT_MAX_DELAY", "30s")
	v.SetDefault("PING_INTERVAL", "30s")
	v.SetDefault("INITIAL_CONNECT_DELAY", "1s")
	v.SetDefault("SINK_TIMEOUT", "5s")
	v.SetDefault("SINK_MAX_IN_FLIGHT", 8)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "bridge-telemetry")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "bridge-telemetry-worker")
	v.SetDefault("CONTROL_JWT_PUBLIC_KEY", "")
	v.SetDefault("CONTROL_JWT_ISSUER", "")
	v.SetDefault("CONTROL_JWT_AUDIENCE", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":3000"
		if cfg.Port != "" {
			cfg.HTTPAddr = ":" + cfg.Port
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errors.New("config: UPSTREAM_WS_URL must be a ws:// or wss:// URL")
	}
	if c.TenantID == "" {
		return errors.New("config: TENANT_ID must be set")
	}
	if c.ReconnectMaxAttempts < 0 {
		return errors.New("config: RECONNECT_MAX_ATTEMPTS must not be negative")
	}
	if c.ReconnectBaseDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return errors.New("config: RECONNECT_BASE_DELAY must be positive and not exceed RECONNECT_MAX_DELAY")
	}
	if c.PingInterval <= 0 {
		return errors.New("config: PING_INTERVAL must be positive")
	}
	if c.SinkTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("config: SINK_TIMEOUT and SHUTDOWN_TIMEOUT must be positive")
	}
	if c.SinkMaxInFlight < 1 {
		return errors.New("config: SINK_MAX_IN_FLIGHT must be at least 1")
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		return errors.New("config: RUN_MIGRATIONS requires DATABASE_URL")
	}
	return nil
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ControlAuthEnabled reports whether POST /connect requires a bearer token.
func (c *Config) ControlAuthEnabled() bool {
	return c != nil && strings.TrimSpace(c.ControlJWTPublicKey) != ""
}
