// Package mcu is the host side client for servoplex firmware.
package mcu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"servoplex/core"
	"servoplex/host/serial"
	"servoplex/protocol"
)

// Bootstrap message IDs, usable before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1

	identifyChunk = 40
)

// ResponseTimeout bounds every wait for a firmware response
var ResponseTimeout = time.Second

var (
	ErrNotConnected = errors.New("not connected to MCU")
	ErrNoDictionary = errors.New("dictionary not retrieved")
)

// StatusError is a servo_status reported by the firmware
type StatusError struct {
	OID  uint8
	Code core.StatusCode
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("servo %d: %s", e.OID, e.Code)
}

// Response is a decoded firmware message
type Response struct {
	Name   string
	Values map[string]int32
	Data   map[string][]byte
}

// Uint returns an integer argument as unsigned
func (r *Response) Uint(name string) uint32 {
	return uint32(r.Values[name])
}

// ServoState is the servo_state reply to Query
type ServoState struct {
	OID          uint8
	Microseconds uint16
	Angle        uint16
	Attached     bool
	Moving       bool
}

// ServoConfig is the firmware's servo_config reply
type ServoConfig struct {
	Capacity  uint8
	Allocated uint8
	Groups    uint8
	ClockHz   uint32
	Prescale  uint32
}

// MCU represents a connection to a servoplex board
type MCU struct {
	// Transport layer
	transport *protocol.HostTransport

	// Port the transport runs over
	port io.ReadWriteCloser

	// Dictionary data
	dictionary     *Dictionary
	dictionaryData []byte

	// Connection state
	connected bool

	// Verbose enables progress output on stdout
	Verbose bool
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{}
}

// Connect connects to an MCU via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	m.ConnectPort(port)

	// Give the board time to initialize if opening the port reset it
	time.Sleep(100 * time.Millisecond)

	return nil
}

// ConnectPort runs the link over an already open stream
func (m *MCU) ConnectPort(port io.ReadWriteCloser) {
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	return m.transport.Close()
}

func (m *MCU) logf(format string, args ...any) {
	if m.Verbose {
		fmt.Printf(format, args...)
	}
}

// RetrieveDictionary retrieves the complete dictionary from the MCU
func (m *MCU) RetrieveDictionary() error {
	if !m.connected {
		return ErrNotConnected
	}

	m.logf("Retrieving dictionary from MCU...\n")

	var dictBuffer bytes.Buffer
	offset := uint32(0)
	maxIterations := 1000 // Safety limit

	for i := 0; i < maxIterations; i++ {
		chunk, err := m.sendIdentify(offset, identifyChunk)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}

		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))

		if i%10 == 0 {
			m.logf("  Retrieved %d bytes...\n", offset)
		}
		if len(chunk) < identifyChunk {
			break
		}
	}

	m.dictionaryData = dictBuffer.Bytes()
	m.logf("Dictionary retrieved: %d bytes\n", len(m.dictionaryData))

	dict, err := ParseDictionary(m.dictionaryData)
	if err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}
	m.dictionary = dict
	return nil
}

// sendIdentify sends an identify command and waits for the matching chunk
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	m.transport.Drain()
	err := m.transport.SendCommand(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send identify command: %w", err)
	}

	payload, err := m.transport.ReceiveResponse(ResponseTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to receive identify response: %w", err)
	}

	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response command ID: %w", err)
	}
	if cmdID != identifyResponseID {
		return nil, fmt.Errorf("unexpected response command ID: %d (expected %d)", cmdID, identifyResponseID)
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}
	return data, nil
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the raw dictionary data
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// PrintDictionary prints a summary of the dictionary
func (m *MCU) PrintDictionary() {
	if m.dictionary == nil {
		fmt.Println("No dictionary loaded")
		return
	}

	fmt.Println("\n=== MCU Dictionary ===")
	fmt.Printf("Version: %s\n", m.dictionary.Version)

	fmt.Println("\nConstants:")
	for k, v := range m.dictionary.Constants {
		fmt.Printf("  %s = %s\n", k, v)
	}

	fmt.Printf("\nCommands (%d):\n", len(m.dictionary.Commands))
	for _, msg := range sortedMessages(m.dictionary.Commands) {
		fmt.Printf("  [%3d] %s\n", msg.ID, msg.Format())
	}

	fmt.Printf("\nResponses (%d):\n", len(m.dictionary.Responses))
	for _, msg := range sortedMessages(m.dictionary.Responses) {
		fmt.Printf("  [%3d] %s\n", msg.ID, msg.Format())
	}
	fmt.Println()
}

// CommandID returns the ID of a firmware command by name
func (m *MCU) CommandID(name string) (uint16, error) {
	if m.dictionary == nil {
		return 0, ErrNoDictionary
	}
	msg, ok := m.dictionary.Commands[name]
	if !ok {
		return 0, fmt.Errorf("unknown command %q", name)
	}
	return msg.ID, nil
}

// Call sends a command with integer arguments in dictionary order and waits
// for the firmware to ack it.
func (m *MCU) Call(name string, args ...int32) error {
	if !m.connected {
		return ErrNotConnected
	}
	if m.dictionary == nil {
		return ErrNoDictionary
	}
	msg, ok := m.dictionary.Commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) != len(msg.Params) {
		return fmt.Errorf("%s takes %d arguments, got %d", name, len(msg.Params), len(args))
	}
	for _, p := range msg.Params {
		if p.Type == "%*s" {
			return fmt.Errorf("%s: byte string parameter %s is not supported", name, p.Name)
		}
	}

	err := m.transport.SendCommand(msg.ID, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeVLQInt(output, a)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	return nil
}

// decodeResponse decodes a firmware message against the dictionary
func (m *MCU) decodeResponse(payload []byte) (*Response, error) {
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}
	msg, ok := m.dictionary.Lookup(uint16(id))
	if !ok {
		return nil, fmt.Errorf("unknown message ID %d", id)
	}

	resp := &Response{
		Name:   msg.Name,
		Values: make(map[string]int32),
		Data:   make(map[string][]byte),
	}
	for _, p := range msg.Params {
		if p.Type == "%*s" {
			b, err := protocol.DecodeVLQBytes(&payload)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.Name, p.Name, err)
			}
			resp.Data[p.Name] = append([]byte(nil), b...)
			continue
		}
		v, err := protocol.DecodeVLQInt(&payload)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", msg.Name, p.Name, err)
		}
		resp.Values[p.Name] = v
	}
	return resp, nil
}

// WaitFor waits for the next message named one of names. Other messages are
// discarded.
func (m *MCU) WaitFor(timeout time.Duration, names ...string) (*Response, error) {
	if m.dictionary == nil {
		return nil, ErrNoDictionary
	}
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timeout waiting for %v", names)
		}
		payload, err := m.transport.ReceiveResponse(remaining)
		if err != nil {
			return nil, err
		}
		resp, err := m.decodeResponse(payload)
		if err != nil {
			m.logf("Dropping undecodable message: %v\n", err)
			continue
		}
		for _, n := range names {
			if resp.Name == n {
				return resp, nil
			}
		}
	}
}

// pendingStatus returns a servo_status for oid that arrived with the last
// command. The firmware sends it before the ack, so it is already queued.
func (m *MCU) pendingStatus(oid uint8) error {
	for {
		payload, ok := m.transport.TryReceiveResponse()
		if !ok {
			return nil
		}
		resp, err := m.decodeResponse(payload)
		if err != nil {
			continue
		}
		if resp.Name == "servo_status" && uint8(resp.Uint("oid")) == oid {
			return &StatusError{OID: oid, Code: core.StatusCode(resp.Uint("code"))}
		}
	}
}

// servoCall sends a command whose first argument is oid and reports any
// servo_status the firmware answered with.
func (m *MCU) servoCall(name string, oid uint8, args ...int32) error {
	if !m.connected {
		return ErrNotConnected
	}
	m.transport.Drain()
	if err := m.Call(name, append([]int32{int32(oid)}, args...)...); err != nil {
		return err
	}
	return m.pendingStatus(oid)
}

// ConfigServo binds oid to a new servo slot
func (m *MCU) ConfigServo(oid uint8) error {
	return m.servoCall("config_servo", oid)
}

// Attach starts driving oid on pin of port. min == max == 0 selects the
// default calibration.
func (m *MCU) Attach(oid, port, pin uint8, min, max uint16) error {
	return m.servoCall("servo_attach", oid, int32(port), int32(pin), int32(min), int32(max))
}

// Detach stops driving oid
func (m *MCU) Detach(oid uint8) error {
	return m.servoCall("servo_detach", oid)
}

// SetMicroseconds moves oid to a pulse width over frames 20ms frames
func (m *MCU) SetMicroseconds(oid uint8, us uint16, frames uint8) error {
	return m.servoCall("servo_set_us", oid, int32(us), int32(frames))
}

// SetAngle moves oid to an angle in degrees over frames 20ms frames
func (m *MCU) SetAngle(oid uint8, angle int, frames uint8) error {
	return m.servoCall("servo_set_angle", oid, int32(angle), int32(frames))
}

// EmergencyStop detaches every servo on the board
func (m *MCU) EmergencyStop() error {
	return m.Call("emergency_stop")
}

// Query reads back the current state of oid
func (m *MCU) Query(oid uint8) (*ServoState, error) {
	if !m.connected {
		return nil, ErrNotConnected
	}
	m.transport.Drain()
	if err := m.Call("servo_query", int32(oid)); err != nil {
		return nil, err
	}

	for {
		resp, err := m.WaitFor(ResponseTimeout, "servo_state", "servo_status")
		if err != nil {
			return nil, err
		}
		if uint8(resp.Uint("oid")) != oid {
			continue
		}
		if resp.Name == "servo_status" {
			return nil, &StatusError{OID: oid, Code: core.StatusCode(resp.Uint("code"))}
		}
		return &ServoState{
			OID:          oid,
			Microseconds: uint16(resp.Uint("us")),
			Angle:        uint16(resp.Uint("angle")),
			Attached:     resp.Uint("attached") != 0,
			Moving:       resp.Uint("moving") != 0,
		}, nil
	}
}

// GetServoConfig reads the board's servo capacity and tick clock
func (m *MCU) GetServoConfig() (*ServoConfig, error) {
	if !m.connected {
		return nil, ErrNotConnected
	}
	m.transport.Drain()
	if err := m.Call("get_servo_config"); err != nil {
		return nil, err
	}
	resp, err := m.WaitFor(ResponseTimeout, "servo_config")
	if err != nil {
		return nil, err
	}
	return &ServoConfig{
		Capacity:  uint8(resp.Uint("capacity")),
		Allocated: uint8(resp.Uint("allocated")),
		Groups:    uint8(resp.Uint("groups")),
		ClockHz:   resp.Uint("clock"),
		Prescale:  resp.Uint("prescale"),
	}, nil
}
