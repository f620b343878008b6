// Package normalize projects vendor telemetry envelopes onto the fixed sparse schema stored by the bridge.
package normalize

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/moveo-mobility/aws-websocket-bridge/internal/telematics/domain"
)

// zeroDate is the vendor's "unset" location timestamp.
const zeroDate = "0001-01-01T00:00:00Z"

// Normalize maps a payload and its telemetry object onto a domain.Normalized.
// It is pure: the same input always yields the same output, and empty sub-records are left nil.
func Normalize(payload, telemetry gjson.Result) domain.Normalized {
	var out domain.Normalized

	if v := telemetry.Get("device_id"); truthy(v) {
		out.DeviceID = v.String()
	}
	if v := telemetry.Get("vehicle_id"); truthy(v) {
		out.VehicleID = v.String()
	} else if v := payload.Get("vehicleId"); truthy(v) {
		out.VehicleID = v.String()
	}
	if v := telemetry.Get("device_serial_number"); truthy(v) {
		out.SerialNumber = v.String()
	}

	rawState := telemetry.Get("raw_data.state.reported")
	if !rawState.IsObject() {
		rawState = gjson.Result{}
	}

	out.Location = location(telemetry, rawState)

	fuel := domain.Fields{}
	engine := domain.Fields{}
	state := domain.Fields{}
	odometer := domain.Fields{}
	misc := domain.Fields{}
	unclassified := domain.Fields{}

	rawState.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		p := Classify(k)
		v := raw(value)
		switch p.Category {
		case CategoryOdometer:
			odometer[p.Field] = v
		case CategoryEngine:
			engine[p.Field] = v
		case CategoryFuel:
			fuel[p.Field] = v
		case CategoryState:
			state[p.Field] = v
		case CategoryVIN:
			misc[p.Field] = v
		case CategoryIgnored:
		default:
			unclassified[k] = v
		}
		return true
	})
	if len(unclassified) > 0 {
		if b, err := json.Marshal(unclassified); err == nil {
			misc["raw_state_data"] = b
		}
	}

	mergeMetadata(misc, telemetry)

	out.Fuel = nonEmpty(fuel)
	out.Engine = nonEmpty(engine)
	out.State = nonEmpty(state)
	out.Odometer = nonEmpty(odometer)
	out.Misc = nonEmpty(misc)
	return out
}

func location(telemetry, rawState gjson.Result) *domain.Location {
	loc := telemetry.Get("location")
	lat, lng := loc.Get("latitude"), loc.Get("longitude")
	// A coordinate of exactly 0 is the vendor's "unset" marker and is dropped with the rest.
	if !truthy(lat) || !truthy(lng) {
		return nil
	}
	out := &domain.Location{Latitude: raw(lat), Longitude: raw(lng)}
	if ts := loc.Get("timestamp"); ts.Exists() && !(ts.Type == gjson.String && ts.Str == zeroDate) {
		out.Timestamp = raw(ts)
	} else if ts := telemetry.Get("timestamp"); ts.Exists() {
		out.Timestamp = raw(ts)
	}
	if v := rawState.Get("sp"); v.Exists() {
		out.Speed = raw(v)
	}
	if v := rawState.Get("alt"); v.Exists() {
		out.Altitude = raw(v)
	}
	if v := rawState.Get("ang"); v.Exists() {
		out.Heading = raw(v)
	}
	if v := rawState.Get("sat"); v.Exists() {
		out.Satellites = raw(v)
	}
	return out
}

// metadataFields maps telemetry keys to their misc_data names.
var metadataFields = []struct{ src, dst string }{
	{"device_type", "device_type"},
	{"vehicle_make", "vehicle_make"},
	{"vehicle_model", "vehicle_model"},
	{"id", "telemetry_id"},
	{"created_at", "created_at"},
}

func mergeMetadata(misc domain.Fields, telemetry gjson.Result) {
	for _, f := range metadataFields {
		if v := telemetry.Get(f.src); truthy(v) {
			misc[f.dst] = raw(v)
		}
	}
}

func nonEmpty(f domain.Fields) domain.Fields {
	if len(f) == 0 {
		return nil
	}
	return f
}

func raw(r gjson.Result) json.RawMessage {
	return json.RawMessage(r.Raw)
}

// truthy follows the vendor feed's presence convention: missing, null, false, 0 and "" are unset.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return true
	}
}
