//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"

	"servoplex/core"
	"servoplex/protocol"
)

var errUSBStalled = errors.New("usb write stalled")

var (
	transport *protocol.Transport

	// Bytes received but not yet consumed by the transport
	inputBuffer = make([]byte, 0, 256)

	// Debug counters
	messagesReceived uint32
	msgerrors        uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitDebugUART()

	core.RegisterConstant("CLOCK_FREQ", alarmClock.ClockHz)

	InitAlarms()
	timers := make([]core.ServoTimer, len(alarms))
	for i, a := range alarms {
		timers[i] = a
	}
	if err := core.SetServoTimers(alarmClock, timers...); err != nil {
		fail(err)
	}
	if err := InitPorts(); err != nil {
		fail(err)
	}

	core.InitCoreCommands()
	core.InitServoCommands()
	InitPWMServoCommands()

	transport = protocol.NewTransport(usbWriter{}, handleCommand)
	transport.SetResetCallback(func() {
		// A restarted host expects idle outputs
		core.DetachAllServos()
	})
	core.SetGlobalTransport(transport)

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer = inputBuffer[:0]
				}
			}()

			pollUSB()
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// pollUSB moves pending USB bytes into inputBuffer and hands every complete
// frame to the transport
func pollUSB() {
	for USBAvailable() > 0 && len(inputBuffer) < cap(inputBuffer) {
		b, err := USBRead()
		if err != nil {
			msgerrors++
			break
		}
		inputBuffer = append(inputBuffer, b)
	}
	if len(inputBuffer) == 0 {
		return
	}

	consumed := transport.Receive(inputBuffer)
	if consumed > 0 {
		messagesReceived++
		n := copy(inputBuffer, inputBuffer[consumed:])
		inputBuffer = inputBuffer[:n]
	} else if len(inputBuffer) == cap(inputBuffer) {
		// A full buffer that parses to nothing is garbage
		inputBuffer = inputBuffer[:0]
		msgerrors++
	}
}

// handleCommand dispatches received commands to the command registry
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// fail blinks the LED forever; the board has no transport to report on yet
func fail(err error) {
	core.DebugPrintln("[BOOT] " + err.Error())
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.Set(!led.Get())
		time.Sleep(100 * time.Millisecond)
	}
}

// itoa converts int to string without importing strconv (for embedded)
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
