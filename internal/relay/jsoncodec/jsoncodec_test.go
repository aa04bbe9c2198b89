package jsoncodec

import (
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	}

	data, err := Marshal(payload{Name: "sensor_accel", Size: 32})
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var out payload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if out.Name != "sensor_accel" || out.Size != 32 {
		t.Fatalf("unexpected round trip result %+v", out)
	}
}

func TestDecode(t *testing.T) {
	var out map[string]int
	if err := Decode(strings.NewReader(`{"cycle_interval_ms":10}`), &out); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if out["cycle_interval_ms"] != 10 {
		t.Fatalf("unexpected decode result %v", out)
	}
}
