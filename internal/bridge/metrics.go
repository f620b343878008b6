package bridge

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/moveo-mobility/aws-websocket-bridge/internal/bridge"

type metrics struct {
	received   metric.Int64Counter
	stored     metric.Int64Counter
	failed     metric.Int64Counter
	closes     metric.Int64Counter
	reconnects metric.Int64Counter
}

// newMetrics registers the bridge instruments on the global MeterProvider.
// Registration errors leave a no-op instrument in place.
func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			log.Printf("bridge: register metric %s: %v", name, err)
		}
		return c
	}
	return &metrics{
		received:   counter("bridge.messages.received", "Inbound upstream messages"),
		stored:     counter("bridge.records.stored", "Telemetry records written to the record sink"),
		failed:     counter("bridge.messages.failed", "Inbound messages dropped, by reason"),
		closes:     counter("bridge.upstream.closes", "Upstream connection closes, by code"),
		reconnects: counter("bridge.reconnects.scheduled", "Reconnect attempts scheduled"),
	}
}

func (m *metrics) add(c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
