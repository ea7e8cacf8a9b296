package core

// ServoTimer is one hardware compare-match timer. Each registered timer
// drives one group of ServosPerTimer channels.
// Platform-specific implementations handle the actual registers.
type ServoTimer interface {
	// Configure puts the timer in free-running count mode with the clock/8
	// prescaler. Called every time the group is activated.
	Configure() error

	// Counter returns the current counter value
	Counter() uint16

	// ResetCounter sets the counter back to zero
	ResetCounter()

	// SetCompare programs the compare-match deadline register
	SetCompare(deadline uint16)

	// SetHandler registers the callback run on every compare-match event
	SetHandler(handler func())

	// SetInterruptEnabled enables or disables the compare-match interrupt
	SetInterruptEnabled(enabled bool)
}

// OutputPort is a bank of digital output lines addressed by bit position.
// Set is called from both the interrupt handler and foreground code, so it
// must not lose a concurrent write to another bit of the same port.
type OutputPort interface {
	Set(bit uint8, high bool)
}

// BitChecker is implemented by ports that cannot drive every bit number.
// servo_attach rejects a bit the port does not have.
type BitChecker interface {
	HasBit(bit uint8) bool
}

// PortTable resolves the port numbers used by the servo_attach command.
type PortTable interface {
	Port(n uint8) (OutputPort, bool)
}

// PortList is a PortTable backed by a slice; port n is PortList[n].
type PortList []OutputPort

// Port returns port n if it exists
func (l PortList) Port(n uint8) (OutputPort, bool) {
	if int(n) >= len(l) || l[n] == nil {
		return nil, false
	}
	return l[n], true
}

// Global singletons used by core code.
var (
	servoMux  *Multiplexer
	portTable PortTable
)

// SetServoTimers is called by target-specific code to register the timers
// compiled into this build, in group order.
func SetServoTimers(clock TickClock, timers ...ServoTimer) error {
	m, err := NewMultiplexer(clock, timers...)
	if err != nil {
		return err
	}
	servoMux = m
	return nil
}

// MustServoMux returns the configured multiplexer or panics if missing.
func MustServoMux() *Multiplexer {
	if servoMux == nil {
		panic("servo timers not configured")
	}
	return servoMux
}

// SetPortTable is called by target-specific code to expose its output ports
// to the servo commands.
func SetPortTable(t PortTable) {
	portTable = t
}
