package core

import (
	"testing"
)

func TestSweepSequence(t *testing.T) {
	m, timers := newTestMux(t, 1)
	tm := timers[0]
	port := &fakePort{}

	s0 := m.NewServo()
	s1 := m.NewServo()
	s0.Attach(port, 0)
	s1.Attach(port, 1)
	s1.SetMicroseconds(1000)

	// Idle: counter reset, channel 0 starts in the same invocation
	tm.fire()
	if tm.resets != 1 {
		t.Errorf("Expected counter reset at frame start, got %d resets", tm.resets)
	}
	if got := tm.lastCompare(); got != 2944 {
		t.Errorf("Expected channel 0 deadline 2944, got %d", got)
	}
	if !port.high(0) || port.high(1) {
		t.Errorf("Expected only pin 0 high, state=%08b", port.state)
	}

	// Channel 0 ends, channel 1 starts relative to the live counter
	tm.fire()
	if got := tm.lastCompare(); got != 2944+2000 {
		t.Errorf("Expected channel 1 deadline %d, got %d", 2944+2000, got)
	}
	if port.high(0) || !port.high(1) {
		t.Errorf("Expected only pin 1 high, state=%08b", port.state)
	}

	// Sweep done: wait until the frame boundary
	tm.fire()
	if got := tm.lastCompare(); got != 40000 {
		t.Errorf("Expected refresh deadline 40000, got %d", got)
	}
	if port.state != 0 {
		t.Errorf("Expected all pins low in the refresh gap, state=%08b", port.state)
	}
	if !m.groups[0].cursor.idle {
		t.Error("Expected cursor idle after the sweep")
	}

	// Next frame starts over
	tm.fire()
	if tm.resets != 2 || !port.high(0) {
		t.Error("Expected a new frame to restart at channel 0")
	}
	checkBalanced(t)
}

func TestSweepEdgeOrder(t *testing.T) {
	m, timers := newTestMux(t, 1)
	port := &fakePort{}
	for bit := uint8(0); bit < 3; bit++ {
		m.NewServo().Attach(port, bit)
	}

	port.edges = nil
	for i := 0; i < 4; i++ {
		timers[0].fire()
	}

	want := []edge{
		{0, true},
		{0, false}, {1, true},
		{1, false}, {2, true},
		{2, false},
	}
	if len(port.edges) != len(want) {
		t.Fatalf("Expected %d edges, got %d: %v", len(want), len(port.edges), port.edges)
	}
	for i := range want {
		if port.edges[i] != want[i] {
			t.Errorf("Edge %d: expected %v, got %v", i, want[i], port.edges[i])
		}
	}
}

func TestDisabledSlotKeepsItsTime(t *testing.T) {
	m, timers := newTestMux(t, 1)
	tm := timers[0]
	port := &fakePort{}

	s0 := m.NewServo()
	s1 := m.NewServo()
	s2 := m.NewServo()
	s0.Attach(port, 0)
	s1.Attach(port, 1)
	s2.Attach(port, 2)
	s1.Detach()

	port.edges = nil
	tm.compares = nil
	tm.fire() // Channel 0 starts at the last armed deadline
	tm.fire() // Channel 1, disabled
	tm.fire() // Channel 2

	for _, e := range port.edges {
		if e.bit == 1 {
			t.Errorf("Expected no edges on a detached channel, got %v", e)
		}
	}

	// The detached slot still takes its pulse width out of the frame
	want := []uint16{2944, 2944 * 2, 2944 * 3}
	for i, w := range want {
		if tm.compares[i] != w {
			t.Errorf("Compare %d: expected %d, got %d", i, w, tm.compares[i])
		}
	}
}

func TestSweepEndsAtLastAllocatedSlot(t *testing.T) {
	m, timers := newTestMux(t, 1)
	m.NewServo().Attach(&fakePort{}, 0)

	timers[0].fire()
	timers[0].fire()
	if got := timers[0].lastCompare(); got != 40000 {
		t.Errorf("Expected refresh right after the only allocated slot, got %d", got)
	}
}

func TestRefreshGapOverrun(t *testing.T) {
	m, timers := newTestMux(t, 1)
	tm := timers[0]
	port := &fakePort{}

	for bit := uint8(0); bit < ServosPerTimer; bit++ {
		s := m.NewServo()
		s.Attach(port, bit%8)
		s.SetMicroseconds(PulseMaxUS)
	}

	// One fire per channel, then the end of the sweep
	for i := 0; i <= ServosPerTimer; i++ {
		tm.fire()
	}

	// 10 * 4800 ticks overruns the 40000 tick frame
	if got := tm.lastCompare(); got != 48000+DeadTimeTicks {
		t.Errorf("Expected deadline %d past the overrun, got %d", 48000+DeadTimeTicks, got)
	}
	if !m.groups[0].cursor.idle {
		t.Error("Expected cursor idle")
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	m, timers := newTestMux(t, 2)
	p0 := &fakePort{}
	p1 := &fakePort{}

	var servos []*Servo
	for i := 0; i < 12; i++ {
		servos = append(servos, m.NewServo())
	}
	servos[0].Attach(p0, 0)
	servos[10].Attach(p1, 0)
	servos[11].Attach(p1, 1)

	timers[1].fire()
	if p0.state != 0 {
		t.Error("Expected group 1 not to touch group 0 pins")
	}
	if !p1.high(0) {
		t.Error("Expected slot 10 (group 1 channel 0) high")
	}
	if m.channelsInGroup(1) != 2 {
		t.Errorf("Expected 2 channels in group 1, got %d", m.channelsInGroup(1))
	}

	// An unregistered group is ignored
	m.OnCompareMatch(4)
}

func TestHandlerRunsThroughTimer(t *testing.T) {
	m, timers := newTestMux(t, 1)
	port := &fakePort{}
	m.NewServo().Attach(port, 5)

	if timers[0].handler == nil {
		t.Fatal("Expected compare handler registered on attach")
	}
	timers[0].handler()
	if !port.high(5) {
		t.Error("Expected the registered handler to drive the group")
	}
}
