package core

import "errors"

var (
	ErrTooManyTimers = errors.New("more servo timers than MaxServoTimers")
	ErrNilTimer      = errors.New("servo timer is nil")
)

// slot is one channel of the table. Fields are shared with interrupt
// context:
//   - enabled is set last on attach and cleared first on detach
//   - target, step and rising are only written together inside an atomic section
//   - position is written by foreground code only inside an atomic section
type slot struct {
	port    OutputPort
	bit     uint8
	enabled bool

	position uint16 // Current pulse width in ticks
	target   uint16 // Ramp destination in ticks
	step     uint16 // Ticks per frame toward target, 0 = no ramp
	rising   bool   // Ramp direction, latched when the ramp starts
}

// cursor is the channel a group's interrupt is servicing, or idle while the
// group waits out the rest of the frame.
type cursor struct {
	idle    bool
	channel uint8
}

func idleCursor() cursor {
	return cursor{idle: true}
}

func scheduled(channel uint8) cursor {
	return cursor{channel: channel}
}

// group is the per-timer state of the scheduler
type group struct {
	timer  ServoTimer
	cursor cursor
	active bool // Interrupt currently enabled
}

// Multiplexer time-slices a small set of compare-match timers across up to
// ServosPerTimer channels each.
type Multiplexer struct {
	clock  TickClock
	slots  [MaxServos]slot
	groups [MaxServoTimers]group

	numGroups uint8
	allocated uint8 // Slots handed out so far, never decreases
}

// NewMultiplexer creates a multiplexer driving one group per timer.
// Timers are used in the order given: timers[0] drives slots 0..9 and so on.
func NewMultiplexer(clock TickClock, timers ...ServoTimer) (*Multiplexer, error) {
	if err := clock.Validate(); err != nil {
		return nil, err
	}
	if len(timers) > MaxServoTimers {
		return nil, ErrTooManyTimers
	}

	m := &Multiplexer{
		clock:     clock,
		numGroups: uint8(len(timers)),
	}

	for i, t := range timers {
		if t == nil {
			return nil, ErrNilTimer
		}
		m.groups[i] = group{timer: t, cursor: idleCursor()}
	}

	return m, nil
}

// Capacity returns how many servos this build can drive
func (m *Multiplexer) Capacity() uint8 {
	return m.numGroups * ServosPerTimer
}

// Allocated returns how many handles have claimed a slot
func (m *Multiplexer) Allocated() uint8 {
	return m.allocated
}

// Groups returns the number of registered timers
func (m *Multiplexer) Groups() uint8 {
	return m.numGroups
}

// Clock returns the tick conversion used by this multiplexer
func (m *Multiplexer) Clock() TickClock {
	return m.clock
}

// GroupOf maps a flat slot index to its timer group and the channel within
// that group. Valid for index < MaxServos.
func GroupOf(index uint8) (grp, channel uint8) {
	return index / ServosPerTimer, index % ServosPerTimer
}

// SlotIndex is the inverse of GroupOf
func SlotIndex(grp, channel uint8) uint8 {
	return grp*ServosPerTimer + channel
}

// isGroupActive reports whether any channel of grp is enabled.
// Only used on attach/detach, never from the interrupt handler.
func (m *Multiplexer) isGroupActive(grp uint8) bool {
	if grp >= m.numGroups {
		return false
	}

	for ch := uint8(0); ch < ServosPerTimer; ch++ {
		if m.slots[SlotIndex(grp, ch)].enabled {
			return true
		}
	}

	return false
}

// channelsInGroup is the number of allocated slots in grp. The sweep ends
// after the last of them.
func (m *Multiplexer) channelsInGroup(grp uint8) uint8 {
	first := SlotIndex(grp, 0)
	if m.allocated <= first {
		return 0
	}
	n := m.allocated - first
	if n > ServosPerTimer {
		n = ServosPerTimer
	}
	return n
}

// enableGroup prepares the group's timer and starts its interrupt. The first
// compare-match begins a fresh sweep. A timer that fails to configure leaves
// the group off.
func (m *Multiplexer) enableGroup(grp uint8) error {
	g := &m.groups[grp]
	if g.active {
		return nil
	}

	if err := g.timer.Configure(); err != nil {
		DebugPrintln("[SERVO] timer " + itoa(int(grp)) + " configure failed: " + err.Error())
		return err
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	g.cursor = idleCursor()
	g.timer.SetHandler(m.groupHandler(grp))
	g.timer.SetCompare(g.timer.Counter() + DeadTimeTicks)
	g.timer.SetInterruptEnabled(true)
	g.active = true

	RecordEvent(EvtGroupEnable, grp, 0, 0)
	return nil
}

// disableGroup stops the group's interrupt, leaving the timer free
func (m *Multiplexer) disableGroup(grp uint8) {
	g := &m.groups[grp]

	state := disableInterrupts()
	defer restoreInterrupts(state)

	g.timer.SetInterruptEnabled(false)
	g.active = false

	RecordEvent(EvtGroupDisable, grp, 0, 0)
}

// GroupActive reports whether grp's interrupt is currently enabled
func (m *Multiplexer) GroupActive(grp uint8) bool {
	if grp >= m.numGroups {
		return false
	}
	return m.groups[grp].active
}

func (m *Multiplexer) groupHandler(grp uint8) func() {
	return func() {
		m.OnCompareMatch(grp)
	}
}
