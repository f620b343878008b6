package normalize

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/domain"
)

// ErrDecode is returned when an inbound message is not a JSON object.
var ErrDecode = errors.New("normalize: message is not a JSON object")

// DefaultUpdateType is used when neither the payload nor the envelope names one.
const DefaultUpdateType = "telemetry_update"

// isoMillis matches the millisecond ISO-8601 timestamps the feed uses.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Envelope is a decoded inbound message.
type Envelope struct {
	Raw        json.RawMessage
	Payload    gjson.Result
	Telemetry  gjson.Result
	UpdateType string
	Timestamp  string
}

// Decode validates an inbound message and locates its payload and telemetry objects.
// now supplies the timestamp for messages that carry none.
func Decode(data []byte, now time.Time) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return Envelope{}, ErrDecode
	}
	msg := gjson.ParseBytes(data)
	if !msg.IsObject() {
		return Envelope{}, ErrDecode
	}

	payload := msg.Get("payload")
	if !truthy(payload) {
		payload = msg
	}
	telemetry := payload.Get("telemetry")
	if !truthy(telemetry) {
		telemetry = gjson.Parse("{}")
	}

	env := Envelope{
		Raw:        append(json.RawMessage(nil), data...),
		Payload:    payload,
		Telemetry:  telemetry,
		UpdateType: firstTruthy(DefaultUpdateType, payload.Get("update_type"), msg.Get("type")),
		Timestamp: firstTruthy(now.UTC().Format(isoMillis),
			telemetry.Get("timestamp"), payload.Get("timestamp"), msg.Get("timestamp")),
	}
	return env, nil
}

// Record builds the stored row for env.
func (env Envelope) Record(tenantID, sessionID string) *domain.Record {
	return &domain.Record{
		TenantID:   tenantID,
		SessionID:  sessionID,
		UpdateType: env.UpdateType,
		Timestamp:  env.Timestamp,
		Raw:        env.Raw,
		Data:       Normalize(env.Payload, env.Telemetry),
	}
}

func firstTruthy(fallback string, candidates ...gjson.Result) string {
	for _, c := range candidates {
		if truthy(c) {
			return c.String()
		}
	}
	return fallback
}
