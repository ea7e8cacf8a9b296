package core

import (
	"servoplex/protocol"
)

// Responder sends a message to the host. *protocol.Transport implements it.
type Responder interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

var globalResponder Responder

// SetGlobalTransport sets the link responses are written to
func SetGlobalTransport(r Responder) {
	globalResponder = r
}

// SendResponse sends a registered response by name. Unknown names and a
// missing transport are dropped.
func SendResponse(name string, args func(output protocol.OutputBuffer)) {
	if globalResponder == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(name)
	if !ok {
		DebugPrintln("[CMD] unknown response " + name)
		return
	}
	globalResponder.SendCommand(cmd.ID, args)
}

// InitCoreCommands registers the bootstrap and board-level commands.
// identify_response and identify must be IDs 0 and 1: the host sends identify
// before it has read the dictionary.
func InitCoreCommands() {
	RegisterCommand("identify_response", "offset=%u data=%*s", nil) // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	RegisterCommand("get_servo_config", "", handleGetServoConfig)
	RegisterCommand("emergency_stop", "", handleEmergencyStop)
	RegisterCommand("dump_events", "", handleDumpEvents)

	// Responses (MCU → Host)
	RegisterCommand("servo_config", "capacity=%c allocated=%c groups=%c clock=%u prescale=%u", nil)

	RegisterConstant("SERVOS_PER_TIMER", ServosPerTimer)
	RegisterConstant("REFRESH_US", RefreshUS)
	RegisterConstant("PULSE_MIN_US", PulseMinUS)
	RegisterConstant("PULSE_MAX_US", PulseMaxUS)
}

// handleIdentify returns chunks of the data dictionary
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := globalRegistry.DictionaryChunk(offset, uint8(count))

	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})

	return nil
}

// handleGetServoConfig reports the multiplexer's size and tick clock
func handleGetServoConfig(data *[]byte) error {
	m := MustServoMux()
	clock := m.Clock()

	SendResponse("servo_config", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(m.Capacity()))
		protocol.EncodeVLQUint(output, uint32(m.Allocated()))
		protocol.EncodeVLQUint(output, uint32(m.Groups()))
		protocol.EncodeVLQUint(output, clock.ClockHz)
		protocol.EncodeVLQUint(output, clock.Prescale)
	})

	return nil
}

// handleEmergencyStop detaches every configured servo
func handleEmergencyStop(data *[]byte) error {
	DetachAllServos()
	return nil
}

// handleDumpEvents writes the event ring to the debug writer
func handleDumpEvents(data *[]byte) error {
	DumpEventRing()
	return nil
}
