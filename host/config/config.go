// Package config loads the JSON rig file servoctl uses to set up a board.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Defaults applied to missing rig values
const (
	DefaultBaud  = 115200
	DefaultMinUS = 544
	DefaultMaxUS = 2400
)

// Rig describes a board and the servos wired to it
type Rig struct {
	Device  string        `json:"device"`
	Baud    int           `json:"baud"`
	Backend string        `json:"backend,omitempty"` // "tarm" or "bugst"
	Servos  []ServoConfig `json:"servos"`
}

// ServoConfig is one servo of the rig
type ServoConfig struct {
	Name       string `json:"name"`
	OID        uint8  `json:"oid"`
	Port       uint8  `json:"port"`
	Pin        uint8  `json:"pin"`
	MinUS      uint16 `json:"min_us"`
	MaxUS      uint16 `json:"max_us"`
	StartAngle *int   `json:"start_angle,omitempty"` // nil keeps the mid position
	RampFrames uint8  `json:"ramp_frames"`           // Frames used by servoctl moves
}

// LoadRig parses a JSON rig description, fills in defaults and validates it
func LoadRig(jsonData []byte) (*Rig, error) {
	var rig Rig

	if err := json.Unmarshal(jsonData, &rig); err != nil {
		return nil, fmt.Errorf("failed to parse rig: %w", err)
	}

	applyDefaults(&rig)

	if err := rig.Validate(); err != nil {
		return nil, err
	}
	return &rig, nil
}

// LoadRigFile reads and parses a rig file
func LoadRigFile(path string) (*Rig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rig file: %w", err)
	}
	return LoadRig(data)
}

// applyDefaults fills in missing configuration values
func applyDefaults(rig *Rig) {
	if rig.Baud == 0 {
		rig.Baud = DefaultBaud
	}

	for i := range rig.Servos {
		s := &rig.Servos[i]
		if s.MinUS == 0 {
			s.MinUS = DefaultMinUS
		}
		if s.MaxUS == 0 {
			s.MaxUS = DefaultMaxUS
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("servo%d", s.OID)
		}
	}
}

// Validate checks calibration bounds and that oids and names are unique
func (r *Rig) Validate() error {
	oids := make(map[uint8]bool)
	names := make(map[string]bool)

	for _, s := range r.Servos {
		if s.MinUS >= s.MaxUS {
			return fmt.Errorf("servo %s: min_us %d must be below max_us %d", s.Name, s.MinUS, s.MaxUS)
		}
		if s.StartAngle != nil && (*s.StartAngle < 0 || *s.StartAngle > 180) {
			return fmt.Errorf("servo %s: start_angle %d outside 0..180", s.Name, *s.StartAngle)
		}
		if oids[s.OID] {
			return fmt.Errorf("servo %s: duplicate oid %d", s.Name, s.OID)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate servo name %q", s.Name)
		}
		oids[s.OID] = true
		names[s.Name] = true
	}
	return nil
}

// Find returns the servo with the given name
func (r *Rig) Find(name string) (*ServoConfig, bool) {
	for i := range r.Servos {
		if r.Servos[i].Name == name {
			return &r.Servos[i], true
		}
	}
	return nil, false
}

// DefaultRig returns a rig with a single servo on port 0 pin 0
func DefaultRig(device string) *Rig {
	rig := &Rig{
		Device: device,
		Servos: []ServoConfig{{Name: "servo0"}},
	}
	applyDefaults(rig)
	return rig
}
