package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRigDefaults(t *testing.T) {
	rig, err := LoadRig([]byte(`{
		"device": "/dev/ttyUSB0",
		"servos": [
			{"name": "pan", "oid": 0, "port": 0, "pin": 2},
			{"oid": 1, "port": 1, "pin": 5, "min_us": 1000, "max_us": 2000, "start_angle": 45}
		]
	}`))
	if err != nil {
		t.Fatalf("LoadRig failed: %v", err)
	}

	if rig.Baud != DefaultBaud {
		t.Errorf("Expected default baud %d, got %d", DefaultBaud, rig.Baud)
	}

	pan, ok := rig.Find("pan")
	if !ok {
		t.Fatal("Expected servo pan")
	}
	if pan.MinUS != DefaultMinUS || pan.MaxUS != DefaultMaxUS {
		t.Errorf("Expected default calibration, got %d..%d", pan.MinUS, pan.MaxUS)
	}
	if pan.StartAngle != nil {
		t.Error("Expected no start angle for pan")
	}

	tilt, ok := rig.Find("servo1")
	if !ok {
		t.Fatal("Expected unnamed servo to be called servo1")
	}
	if tilt.MinUS != 1000 || tilt.MaxUS != 2000 || tilt.StartAngle == nil || *tilt.StartAngle != 45 {
		t.Errorf("Expected explicit values kept, got %+v", tilt)
	}
}

func TestLoadRigValidation(t *testing.T) {
	testCases := map[string]string{
		"bad json":        `{"servos": [`,
		"min above max":   `{"servos": [{"oid": 0, "min_us": 2000, "max_us": 1000}]}`,
		"duplicate oid":   `{"servos": [{"name": "a", "oid": 3}, {"name": "b", "oid": 3}]}`,
		"duplicate name":  `{"servos": [{"name": "a", "oid": 1}, {"name": "a", "oid": 2}]}`,
		"angle too large": `{"servos": [{"oid": 0, "start_angle": 200}]}`,
	}

	for name, text := range testCases {
		if _, err := LoadRig([]byte(text)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadRigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.json")
	if err := os.WriteFile(path, []byte(`{"device": "/dev/ttyACM1", "baud": 57600}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rig, err := LoadRigFile(path)
	if err != nil {
		t.Fatalf("LoadRigFile failed: %v", err)
	}
	if rig.Device != "/dev/ttyACM1" || rig.Baud != 57600 {
		t.Errorf("Unexpected rig: %+v", rig)
	}

	if _, err := LoadRigFile(filepath.Join(t.TempDir(), "missing.json")); err == nil ||
		!strings.Contains(err.Error(), "failed to read rig file") {
		t.Errorf("Expected read error, got %v", err)
	}
}

func TestDefaultRig(t *testing.T) {
	rig := DefaultRig("/dev/ttyACM0")
	if len(rig.Servos) != 1 || rig.Servos[0].MaxUS != DefaultMaxUS || rig.Baud != DefaultBaud {
		t.Errorf("Unexpected default rig: %+v", rig)
	}
	if err := rig.Validate(); err != nil {
		t.Errorf("Expected default rig to validate, got %v", err)
	}
}
