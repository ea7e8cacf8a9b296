package core

import "errors"

var ErrBadClock = errors.New("servo clock cannot express a frame in 16-bit ticks")

// Build-time servo configuration. Boards pick which timers exist; everything
// else about the multiplexer is fixed here.
const (
	ServosPerTimer = 10 // Channels multiplexed onto one compare-match timer
	MaxServoTimers = 5  // Upper bound on timers a board may register

	MaxServos = ServosPerTimer * MaxServoTimers

	PulseMinUS = 544  // Default calibration lower bound
	PulseMidUS = 1472 // Position of a freshly constructed servo
	PulseMaxUS = 2400 // Default calibration upper bound

	RefreshUS  = 20000 // One frame
	RefreshFPS = 1000000 / RefreshUS

	// DeadTimeTicks is the minimum distance between "now" and the next
	// compare deadline armed at the end of a sweep.
	DeadTimeTicks = 4

	AngleMax = 180

	// InvalidServo is the index reported by a handle that could not claim a slot.
	InvalidServo = 255
)

// Prescale8 is the clock divider every servo timer is configured with.
const Prescale8 = 8

// TickClock converts between microseconds and timer ticks for a timer clocked
// at ClockHz and divided by Prescale.
type TickClock struct {
	ClockHz  uint32
	Prescale uint32
}

// DefaultTickClock is a 16MHz AVR core running its timers at clk/8.
var DefaultTickClock = TickClock{ClockHz: 16000000, Prescale: Prescale8}

func (c TickClock) ticksPerUS() uint32 {
	return c.ClockHz / 1000000
}

// Validate checks that the clock has at least one tick per microsecond before
// prescaling, a non-zero prescaler, and that one frame fits the 16-bit
// counter.
func (c TickClock) Validate() error {
	tpu := c.ticksPerUS()
	if tpu == 0 || c.Prescale == 0 {
		return ErrBadClock
	}
	if uint64(RefreshUS)*uint64(tpu)/uint64(c.Prescale) > 0xFFFF {
		return ErrBadClock
	}
	if uint64(PulseMinUS)*uint64(tpu)/uint64(c.Prescale) == 0 {
		return ErrBadClock
	}
	return nil
}

// USToTicks converts a pulse width in microseconds to timer ticks
func (c TickClock) USToTicks(us uint16) uint16 {
	if c.Prescale == 0 {
		return 0
	}
	return uint16(uint32(us) * c.ticksPerUS() / c.Prescale)
}

// TicksToUS converts timer ticks back to microseconds
func (c TickClock) TicksToUS(ticks uint16) uint16 {
	tpu := c.ticksPerUS()
	if tpu == 0 {
		return 0
	}
	return uint16(uint32(ticks) * c.Prescale / tpu)
}

// RefreshTicks is the length of one frame in ticks
func (c TickClock) RefreshTicks() uint16 {
	return c.USToTicks(RefreshUS)
}
