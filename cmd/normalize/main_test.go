package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	in := strings.Join([]string{
		`{"payload":{"telemetry":{"device_id":"dev-1","timestamp":"2024-01-01T00:00:00Z","raw_data":{"state":{"reported":{"113":40}}}}}}`,
		``,
		`not json`,
		`{"type":"status","timestamp":"2024-01-02T00:00:00Z"}`,
	}, "\n")
	var out bytes.Buffer
	rejected, err := run(strings.NewReader(in), &out, "tenant-a", "sess-9", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2: %s", len(lines), out.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["TenantID"] != "tenant-a" || first["SessionID"] != "sess-9" {
		t.Errorf("record = %v", first)
	}
	if !strings.Contains(lines[1], `"UpdateType":"status"`) {
		t.Errorf("second record = %s", lines[1])
	}
}
