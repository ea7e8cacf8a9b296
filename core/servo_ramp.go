package core

// rampStep returns the per-frame tick increment that moves position to
// target within frames frames. A zero result means "snap".
//
// The division rounds up: a truncated step could be zero, leaving the ramp
// pending forever, and otherwise overruns the requested duration.
func rampStep(position, target uint16, frames uint8) uint16 {
	if frames == 0 || position == target {
		return 0
	}

	diff := target - position
	if position > target {
		diff = position - target
	}

	per := RefreshFPS * uint32(frames)
	return uint16((uint32(diff) + per - 1) / per)
}

// beginRamp points a slot at target. With frames == 0 the slot jumps there
// immediately and any ramp in progress is cancelled.
func (m *Multiplexer) beginRamp(index uint8, target uint16, frames uint8) {
	s := &m.slots[index]

	defer enterAtomic().exit()

	step := rampStep(s.position, target, frames)
	if step == 0 {
		s.position = target
		s.target = target
		s.step = 0
		return
	}

	s.target = target
	s.rising = target > s.position
	s.step = step

	RecordEvent(EvtRampStart, index, uint32(target), uint32(step))
}
