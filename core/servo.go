package core

import "errors"

var (
	ErrInvalidServo   = errors.New("servo has no slot")
	ErrNilPort        = errors.New("servo output port is nil")
	ErrBadCalibration = errors.New("servo min must be below max")
)

// Servo is the handle for one logical servo. A handle claims its slot when it
// is created and keeps it for life; detaching only stops the output.
//
// Calibration bounds are in microseconds. A handle created after every slot
// was taken is invalid: Attach reports ErrInvalidServo and every other
// method does nothing or returns zero.
type Servo struct {
	mux   *Multiplexer
	index uint8
	min   uint16
	max   uint16
}

// NewServo claims the next free slot of the board's multiplexer
func NewServo() *Servo {
	return MustServoMux().NewServo()
}

// NewServo claims the next free slot. The slot starts at the mid position.
func (m *Multiplexer) NewServo() *Servo {
	s := &Servo{
		mux:   m,
		index: InvalidServo,
		min:   PulseMinUS,
		max:   PulseMaxUS,
	}

	defer enterAtomic().exit()

	if m.allocated >= m.Capacity() {
		return s
	}

	s.index = m.allocated
	mid := m.clock.USToTicks(PulseMidUS)
	m.slots[s.index].position = mid
	m.slots[s.index].target = mid
	// Publish the slot to the interrupt handler last
	m.allocated++

	return s
}

// Index returns the slot index, or InvalidServo
func (s *Servo) Index() uint8 {
	return s.index
}

// Valid reports whether the handle owns a slot
func (s *Servo) Valid() bool {
	return s.index != InvalidServo
}

// Attach drives the servo on bit of port with the default calibration
func (s *Servo) Attach(port OutputPort, bit uint8) error {
	return s.AttachRange(port, bit, PulseMinUS, PulseMaxUS)
}

// AttachRange drives the servo on bit of port, calibrated to [min, max]
// microseconds. The group's interrupt is started if it is not running; an
// error from the group's timer is returned and the servo stays detached.
func (s *Servo) AttachRange(port OutputPort, bit uint8, min, max uint16) error {
	if !s.Valid() {
		return ErrInvalidServo
	}
	if port == nil {
		return ErrNilPort
	}
	if min >= max {
		return ErrBadCalibration
	}

	s.min = min
	s.max = max

	m := s.mux
	sl := &m.slots[s.index]
	if sl.enabled {
		// Re-attach: stop the old line before touching port/bit
		sl.enabled = false
		sl.port.Set(sl.bit, false)
	}

	state := disableInterrupts()
	sl.port = port
	sl.bit = bit
	restoreInterrupts(state)

	grp, _ := GroupOf(s.index)
	if err := m.enableGroup(grp); err != nil {
		// The slot stays disabled so the next attach retries the timer
		return err
	}

	// This must be last
	sl.enabled = true

	RecordEvent(EvtAttach, s.index, uint32(bit), 0)
	DebugPrintln("[SERVO] attach servo=" + itoa(int(s.index)) + " bit=" + itoa(int(bit)))
	return nil
}

// Detach stops driving the servo's output. The slot stays reserved.
func (s *Servo) Detach() {
	if !s.Valid() {
		return
	}
	m := s.mux
	sl := &m.slots[s.index]

	// This must be first
	wasEnabled := sl.enabled
	sl.enabled = false
	if wasEnabled {
		sl.port.Set(sl.bit, false)
	}

	grp, _ := GroupOf(s.index)
	if m.GroupActive(grp) && !m.isGroupActive(grp) {
		m.disableGroup(grp)
	}

	RecordEvent(EvtDetach, s.index, 0, 0)
}

// Attached reports whether the servo's output is being driven
func (s *Servo) Attached() bool {
	return s.Valid() && s.mux.slots[s.index].enabled
}

// Moving reports whether a ramp is in progress
func (s *Servo) Moving() bool {
	return s.Valid() && s.mux.slots[s.index].step != 0
}

// Min returns the calibration lower bound in microseconds
func (s *Servo) Min() uint16 {
	return s.min
}

// SetMin sets the calibration lower bound in microseconds
func (s *Servo) SetMin(us uint16) {
	s.min = us
}

// Max returns the calibration upper bound in microseconds
func (s *Servo) Max() uint16 {
	return s.max
}

// SetMax sets the calibration upper bound in microseconds
func (s *Servo) SetMax(us uint16) {
	s.max = us
}

// Microseconds returns the pulse width currently being output
func (s *Servo) Microseconds() uint16 {
	if !s.Valid() {
		return 0
	}
	return s.mux.clock.TicksToUS(s.mux.slots[s.index].position)
}

// SetMicroseconds jumps to a pulse width, clamped to [Min, Max]
func (s *Servo) SetMicroseconds(us uint16) {
	s.SetMicrosecondsRamp(us, 0)
}

// SetMicrosecondsRamp moves to a pulse width, clamped to [Min, Max], over
// frames frames of 20ms. frames == 0 jumps immediately.
func (s *Servo) SetMicrosecondsRamp(us uint16, frames uint8) {
	if !s.Valid() {
		return
	}
	us = clampU16(us, s.min, s.max)
	s.mux.beginRamp(s.index, s.mux.clock.USToTicks(us), frames)
}

// Angle returns the current position in degrees, 0 to AngleMax
func (s *Servo) Angle() int {
	if !s.Valid() || s.min >= s.max {
		return 0
	}
	a := mapRange(int32(s.Microseconds()), int32(s.min), int32(s.max), 0, AngleMax)
	return int(clampI32(a, 0, AngleMax))
}

// SetAngle jumps to an angle in degrees, clamped to [0, AngleMax]
func (s *Servo) SetAngle(angle int) {
	s.SetAngleRamp(angle, 0)
}

// SetAngleRamp moves to an angle over frames frames
func (s *Servo) SetAngleRamp(angle int, frames uint8) {
	if !s.Valid() {
		return
	}
	if angle < 0 {
		angle = 0
	} else if angle > AngleMax {
		angle = AngleMax
	}
	us := mapRange(int32(angle), 0, AngleMax, int32(s.min), int32(s.max))
	s.SetMicrosecondsRamp(uint16(clampI32(us, 0, 0xFFFF)), frames)
}

// mapRange linearly maps x from [inMin, inMax] to [outMin, outMax]
func mapRange(x, inMin, inMax, outMin, outMax int32) int32 {
	if inMax == inMin {
		return outMin
	}
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

func clampU16(v, lo, hi uint16) uint16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
