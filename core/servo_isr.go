package core

// OnCompareMatch is the compare-match handler for group grp. It ends the
// pulse of the channel under the cursor and starts the next one, or, once
// every channel of the group has had its slot, arms the refresh gap.
//
// The next deadline is always relative to the live counter so the time spent
// in this handler does not accumulate into the pulse widths.
func (m *Multiplexer) OnCompareMatch(grp uint8) {
	if grp >= m.numGroups {
		return
	}
	g := &m.groups[grp]
	t := g.timer

	var next uint8
	if g.cursor.idle {
		// Start of a frame
		t.ResetCounter()
		next = 0
	} else {
		s := &m.slots[SlotIndex(grp, g.cursor.channel)]
		if s.enabled {
			s.port.Set(s.bit, false)
		}
		next = g.cursor.channel + 1
	}

	if next < m.channelsInGroup(grp) {
		s := &m.slots[SlotIndex(grp, next)]
		if s.step != 0 {
			s.advance()
			if s.step == 0 {
				RecordEvent(EvtRampDone, SlotIndex(grp, next), uint32(t.Counter()), uint32(s.position))
			}
		}

		t.SetCompare(t.Counter() + s.position)
		if s.enabled {
			s.port.Set(s.bit, true)
		}
		g.cursor = scheduled(next)
		return
	}

	// Sweep finished: wait out the frame, but never arm a deadline that is
	// already (or almost) behind the counter.
	now := t.Counter()
	refresh := m.clock.RefreshTicks()
	if uint32(now)+DeadTimeTicks < uint32(refresh) {
		t.SetCompare(refresh)
	} else {
		t.SetCompare(now + DeadTimeTicks)
	}
	g.cursor = idleCursor()
}

// advance moves position one step toward target, finishing the ramp when the
// step would reach or pass it.
func (s *slot) advance() {
	if s.rising {
		if s.position >= s.target || s.target-s.position <= s.step {
			s.position = s.target
			s.step = 0
			return
		}
		s.position += s.step
		return
	}

	if s.position <= s.target || s.position-s.target <= s.step {
		s.position = s.target
		s.step = 0
		return
	}
	s.position -= s.step
}
