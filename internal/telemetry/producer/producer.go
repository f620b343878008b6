// Package producer publishes bridge lifecycle events to a message broker so a worker can ship them to Loki.
package producer

import "github.com/moveo-mobility/aws-websocket-bridge/internal/telemetry"

// Producer emits lifecycle events. It satisfies telemetry.EventEmitter.
type Producer interface {
	telemetry.EventEmitter
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
