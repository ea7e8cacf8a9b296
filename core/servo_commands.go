// Servo object commands
// Binds host object IDs to Servo handles on the board's multiplexer
package core

import (
	"servoplex/protocol"
)

// Global registry of configured servos by oid
var servoObjects = make(map[uint8]*Servo)

// InitServoCommands registers servo-related commands with the command registry
func InitServoCommands() {
	RegisterCommand("config_servo", "oid=%c", handleConfigServo)
	RegisterCommand("servo_attach", "oid=%c port=%c pin=%c min=%hu max=%hu", handleServoAttach)
	RegisterCommand("servo_detach", "oid=%c", handleServoDetach)
	RegisterCommand("servo_set_us", "oid=%c us=%hu frames=%c", handleServoSetUS)
	RegisterCommand("servo_set_angle", "oid=%c angle=%i frames=%c", handleServoSetAngle)
	RegisterCommand("servo_query", "oid=%c", handleServoQuery)

	// Responses (MCU → Host)
	RegisterCommand("servo_state", "oid=%c us=%hu angle=%hu attached=%c moving=%c", nil)
	RegisterCommand("servo_status", "oid=%c code=%c", nil)
}

// GetServo returns the servo configured under oid
func GetServo(oid uint8) (*Servo, bool) {
	s, ok := servoObjects[oid]
	return s, ok
}

// DetachAllServos stops the output of every configured servo
func DetachAllServos() {
	for _, s := range servoObjects {
		s.Detach()
	}
}

// sendServoStatus reports a failed command on oid
func sendServoStatus(oid uint8, err error) {
	code := CodeOf(err)
	DebugPrintln("[SERVO] oid=" + itoa(int(oid)) + " " + code.String())
	SendResponse("servo_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(code))
	})
}

// decodeOIDServo decodes the leading oid argument and looks it up.
// A missing oid is reported to the host and returns a nil servo.
func decodeOIDServo(data *[]byte) (uint8, *Servo, error) {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, nil, err
	}
	oid := uint8(v)
	s, ok := servoObjects[oid]
	if !ok {
		sendServoStatus(oid, ErrUnknownOID)
		return oid, nil, nil
	}
	return oid, s, nil
}

// handleConfigServo claims a slot for oid
// Format: config_servo oid=%c
func handleConfigServo(data *[]byte) error {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	oid := uint8(v)

	if _, exists := servoObjects[oid]; exists {
		sendServoStatus(oid, ErrOIDInUse)
		return nil
	}

	s := MustServoMux().NewServo()
	if !s.Valid() {
		sendServoStatus(oid, ErrInvalidServo)
		return nil
	}

	servoObjects[oid] = s
	return nil
}

// handleServoAttach attaches a servo to a line of a target port
// Format: servo_attach oid=%c port=%c pin=%c min=%hu max=%hu
func handleServoAttach(data *[]byte) error {
	oid, s, err := decodeOIDServo(data)
	if err != nil {
		return err
	}

	var args [4]uint32 // port, pin, min, max
	for i := range args {
		if args[i], err = protocol.DecodeVLQUint(data); err != nil {
			return err
		}
	}
	if s == nil {
		return nil
	}

	if portTable == nil {
		sendServoStatus(oid, ErrBadPort)
		return nil
	}
	if args[0] > 0xFF || args[1] > 0xFF {
		sendServoStatus(oid, ErrBadPort)
		return nil
	}
	port, ok := portTable.Port(uint8(args[0]))
	if !ok {
		sendServoStatus(oid, ErrBadPort)
		return nil
	}
	if bc, ok := port.(BitChecker); ok && !bc.HasBit(uint8(args[1])) {
		sendServoStatus(oid, ErrBadPort)
		return nil
	}

	min, max := uint16(args[2]), uint16(args[3])
	if min == 0 && max == 0 {
		min, max = PulseMinUS, PulseMaxUS
	}

	if err := s.AttachRange(port, uint8(args[1]), min, max); err != nil {
		sendServoStatus(oid, err)
	}
	return nil
}

// handleServoDetach stops a servo's output
// Format: servo_detach oid=%c
func handleServoDetach(data *[]byte) error {
	_, s, err := decodeOIDServo(data)
	if err != nil || s == nil {
		return err
	}
	s.Detach()
	return nil
}

// handleServoSetUS sets a pulse width, ramping over frames when non-zero
// Format: servo_set_us oid=%c us=%hu frames=%c
func handleServoSetUS(data *[]byte) error {
	_, s, err := decodeOIDServo(data)
	if err != nil {
		return err
	}
	us, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	frames, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	if us > 0xFFFF {
		us = 0xFFFF
	}
	s.SetMicrosecondsRamp(uint16(us), uint8(frames))
	return nil
}

// handleServoSetAngle sets an angle in degrees, ramping over frames when
// non-zero
// Format: servo_set_angle oid=%c angle=%i frames=%c
func handleServoSetAngle(data *[]byte) error {
	_, s, err := decodeOIDServo(data)
	if err != nil {
		return err
	}
	angle, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	frames, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}

	s.SetAngleRamp(int(angle), uint8(frames))
	return nil
}

// handleServoQuery reports a servo's current output
// Format: servo_query oid=%c
func handleServoQuery(data *[]byte) error {
	oid, s, err := decodeOIDServo(data)
	if err != nil || s == nil {
		return err
	}

	us := s.Microseconds()
	angle := s.Angle()
	attached := s.Attached()
	moving := s.Moving()

	SendResponse("servo_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(oid))
		protocol.EncodeVLQUint(output, uint32(us))
		protocol.EncodeVLQUint(output, uint32(angle))
		protocol.EncodeVLQUint(output, boolArg(attached))
		protocol.EncodeVLQUint(output, boolArg(moving))
	})
	return nil
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
