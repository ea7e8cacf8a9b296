//go:build atmega2560

package main

import (
	"machine"

	"servoplex/core"
	"servoplex/protocol"
)

// Host link baud rate, the host default
const baudRate = 115200

var (
	transport   *protocol.Transport
	inputBuffer [protocol.FrameMax * 2]byte
	inputLen    int
)

func main() {
	uart := machine.Serial
	uart.Configure(machine.UARTConfig{BaudRate: baudRate})
	InitDebugUART()

	clock := core.DefaultTickClock
	core.RegisterConstant("CLOCK_FREQ", clock.ClockHz)

	if err := core.SetServoTimers(clock, InitTimers()...); err != nil {
		// The host link is not up yet
		core.DebugPrintln("[BOOT] " + err.Error())
		for {
		}
	}
	InitPorts()

	core.InitCoreCommands()
	core.InitServoCommands()

	transport = protocol.NewTransport(uart, handleCommand)
	transport.SetResetCallback(core.DetachAllServos)
	core.SetGlobalTransport(transport)

	for {
		for uart.Buffered() > 0 && inputLen < len(inputBuffer) {
			b, err := uart.ReadByte()
			if err != nil {
				break
			}
			inputBuffer[inputLen] = b
			inputLen++
		}
		if inputLen == 0 {
			continue
		}

		consumed := transport.Receive(inputBuffer[:inputLen])
		if consumed == 0 && inputLen == len(inputBuffer) {
			consumed = inputLen
		}
		inputLen = copy(inputBuffer[:], inputBuffer[consumed:inputLen])
	}
}

// handleCommand dispatches received commands to the command registry
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}
