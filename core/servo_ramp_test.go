package core

import (
	"testing"
)

func TestRampStep(t *testing.T) {
	tests := []struct {
		name             string
		position, target uint16
		frames           uint8
		want             uint16
	}{
		{"snap", 0, 1000, 0, 0},
		{"already there", 500, 500, 5, 0},
		{"exact", 0, 250, 1, 5},
		{"rounds up", 0, 251, 1, 6},
		{"falling", 250, 0, 1, 5},
		{"tiny move", 0, 1, 200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rampStep(tt.position, tt.target, tt.frames); got != tt.want {
				t.Errorf("Expected step %d, got %d", tt.want, got)
			}
		})
	}
}

// runFrames sweeps a single-servo group until the ramp finishes, checking the
// position never passes the target. Returns the number of frames it took.
func runFrames(t *testing.T, m *Multiplexer, tm *fakeTimer, index uint8, limit int) int {
	t.Helper()
	s := &m.slots[index]
	target := s.target
	rising := s.position < target

	for frame := 1; frame <= limit; frame++ {
		tm.fire() // Start of frame, advances the ramp
		tm.fire() // End of sweep

		if rising && s.position > target || !rising && s.position < target {
			t.Fatalf("Frame %d: position %d overshot target %d", frame, s.position, target)
		}
		if s.step == 0 {
			return frame
		}
	}
	t.Fatalf("Ramp did not finish within %d frames", limit)
	return limit
}

func TestMicrosecondsRampReachesTarget(t *testing.T) {
	m, timers := newTestMux(t, 1)
	s := m.NewServo()
	s.Attach(&fakePort{}, 0)

	const frames = 5
	s.SetMicrosecondsRamp(2000, frames)
	if !s.Moving() {
		t.Fatal("Expected ramp in progress")
	}
	if got := m.slots[0].position; got != 2944 {
		t.Errorf("Expected position untouched until the next frame, got %d", got)
	}

	runFrames(t, m, timers[0], 0, RefreshFPS*frames)
	if s.Microseconds() != 2000 || s.Moving() {
		t.Errorf("Expected ramp to settle at 2000us, got %dus moving=%v", s.Microseconds(), s.Moving())
	}
	checkBalanced(t)
}

func TestAngleRampDown(t *testing.T) {
	m, timers := newTestMux(t, 1)
	s := m.NewServo()
	s.Attach(&fakePort{}, 0)

	const frames = 2
	s.SetAngleRamp(-30, frames)
	runFrames(t, m, timers[0], 0, RefreshFPS*frames)
	if s.Angle() != 0 || s.Microseconds() != PulseMinUS {
		t.Errorf("Expected ramp to 0 degrees, got %d (%dus)", s.Angle(), s.Microseconds())
	}
}

func TestSmallRampCompletes(t *testing.T) {
	m, timers := newTestMux(t, 1)
	s := m.NewServo()
	s.Attach(&fakePort{}, 0)

	// A 2 tick move over 4 seconds used to truncate to a zero step
	s.SetMicrosecondsRamp(PulseMidUS+1, 200)
	if m.slots[0].step != 1 {
		t.Fatalf("Expected minimum step 1, got %d", m.slots[0].step)
	}
	if n := runFrames(t, m, timers[0], 0, 10); n != 2 {
		t.Errorf("Expected 2 frames, got %d", n)
	}
}

func TestSnapCancelsRamp(t *testing.T) {
	m, _ := newTestMux(t, 1)
	s := m.NewServo()

	s.SetMicrosecondsRamp(2400, 10)
	s.SetMicroseconds(1000)

	sl := m.slots[0]
	if sl.step != 0 || sl.position != 2000 || sl.target != 2000 {
		t.Errorf("Expected snap to 2000 ticks with no ramp, got position=%d target=%d step=%d",
			sl.position, sl.target, sl.step)
	}
	if s.Moving() {
		t.Error("Expected ramp cancelled")
	}
}

func TestHandlesRampIndependently(t *testing.T) {
	m, _ := newTestMux(t, 1)
	s0 := m.NewServo()
	s1 := m.NewServo()

	s0.SetMicrosecondsRamp(2000, 5)
	s1.SetMicrosecondsRamp(1000, 2)

	if m.slots[0].target != 4000 || m.slots[0].step != 5 || !m.slots[0].rising {
		t.Errorf("Slot 0: expected target 4000 step 5 rising, got %+v", m.slots[0])
	}
	if m.slots[1].target != 2000 || m.slots[1].step != 10 || m.slots[1].rising {
		t.Errorf("Slot 1: expected target 2000 step 10 falling, got %+v", m.slots[1])
	}
	checkBalanced(t)
}

func TestInterleavedRampsKeepOwnState(t *testing.T) {
	m, timers := newTestMux(t, 1)
	port := &fakePort{}
	servos := []*Servo{m.NewServo(), m.NewServo(), m.NewServo()}
	for i, s := range servos {
		if err := s.Attach(port, uint8(i)); err != nil {
			t.Fatalf("Attach %d failed: %v", i, err)
		}
	}

	// A frame is one compare-match per channel plus the refresh gap
	frame := func(n int) {
		for i := 0; i < n*(len(servos)+1); i++ {
			timers[0].fire()
		}
	}

	// The last call per servo wins: 0 -> 1200us, 1 -> 2200us, 2 -> 1800us
	servos[0].SetMicrosecondsRamp(2000, 5)
	timers[0].fire()
	servos[1].SetMicrosecondsRamp(1000, 2)
	timers[0].fire()
	timers[0].fire()
	servos[2].SetMicroseconds(1800)
	frame(3)
	servos[0].SetMicrosecondsRamp(1200, 1)
	timers[0].fire()
	servos[1].SetMicrosecondsRamp(2200, 3)

	if m.slots[0].target != 2400 || m.slots[1].target != 4400 || m.slots[2].target != 3600 {
		t.Errorf("Expected targets 2400/4400/3600 right after the calls, got %d/%d/%d",
			m.slots[0].target, m.slots[1].target, m.slots[2].target)
	}
	if m.slots[2].step != 0 || m.slots[2].position != 3600 {
		t.Errorf("Expected slot 2 snapped to 3600, got position=%d step=%d",
			m.slots[2].position, m.slots[2].step)
	}

	// Servo 1's ramp needs at most 50*3 frames
	frame(160)

	want := []uint16{1200, 2200, 1800}
	for i, s := range servos {
		sl := m.slots[i]
		ticks := m.clock.USToTicks(want[i])
		if sl.position != ticks || sl.target != ticks || sl.step != 0 {
			t.Errorf("Slot %d: expected settled at %d ticks, got position=%d target=%d step=%d",
				i, ticks, sl.position, sl.target, sl.step)
		}
		if s.Microseconds() != want[i] || s.Moving() {
			t.Errorf("Slot %d: expected %dus and not moving, got %dus moving=%v",
				i, want[i], s.Microseconds(), s.Moving())
		}
	}
	checkBalanced(t)
}

func TestRampDirectionLatched(t *testing.T) {
	s := slot{position: 100, target: 200, step: 30, rising: true}
	s.advance()
	if s.position != 130 {
		t.Errorf("Expected 130, got %d", s.position)
	}
	s.advance()
	s.advance()
	s.advance()
	if s.position != 200 || s.step != 0 {
		t.Errorf("Expected clamp to 200 with step 0, got %d step %d", s.position, s.step)
	}

	// Position already past the target: finishes instead of reversing
	s = slot{position: 300, target: 200, step: 10, rising: true}
	s.advance()
	if s.position != 200 || s.step != 0 {
		t.Errorf("Expected clamp to 200, got %d step %d", s.position, s.step)
	}
}
