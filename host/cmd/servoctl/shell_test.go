package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"servoplex/core"
	"servoplex/host/config"
	"servoplex/host/mcu"
)

type fakeBoard struct {
	calls      []string
	configured map[uint8]bool
	moving     int // Query replies with Moving set before settling
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{configured: make(map[uint8]bool)}
}

func (f *fakeBoard) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBoard) ConfigServo(oid uint8) error {
	f.record("config %d", oid)
	if f.configured[oid] {
		return &mcu.StatusError{OID: oid, Code: core.CodeOIDInUse}
	}
	f.configured[oid] = true
	return nil
}

func (f *fakeBoard) Attach(oid, port, pin uint8, min, max uint16) error {
	f.record("attach %d %d %d %d %d", oid, port, pin, min, max)
	return nil
}

func (f *fakeBoard) Detach(oid uint8) error {
	f.record("detach %d", oid)
	return nil
}

func (f *fakeBoard) SetMicroseconds(oid uint8, us uint16, frames uint8) error {
	f.record("us %d %d %d", oid, us, frames)
	return nil
}

func (f *fakeBoard) SetAngle(oid uint8, angle int, frames uint8) error {
	f.record("angle %d %d %d", oid, angle, frames)
	return nil
}

func (f *fakeBoard) Query(oid uint8) (*mcu.ServoState, error) {
	st := &mcu.ServoState{OID: oid, Microseconds: 1472, Angle: 90, Attached: true}
	if f.moving > 0 {
		f.moving--
		st.Moving = true
	}
	return st, nil
}

func (f *fakeBoard) GetServoConfig() (*mcu.ServoConfig, error) {
	return &mcu.ServoConfig{Capacity: 48, Allocated: 2, Groups: 4, ClockHz: 16000000, Prescale: 8}, nil
}

func (f *fakeBoard) EmergencyStop() error {
	f.record("estop")
	return nil
}

func (f *fakeBoard) PrintDictionary() {}

func testRig() *config.Rig {
	start := 45
	return &config.Rig{
		Servos: []config.ServoConfig{
			{Name: "pan", OID: 3, Port: 1, Pin: 2, MinUS: 600, MaxUS: 2300, RampFrames: 25, StartAngle: &start},
			{Name: "tilt", OID: 4, Port: 1, Pin: 3, MinUS: 544, MaxUS: 2400},
		},
	}
}

func newTestShell() (*shell, *fakeBoard, *bytes.Buffer) {
	b := newFakeBoard()
	out := &bytes.Buffer{}
	return &shell{board: b, rig: testRig(), out: out}, b, out
}

func run(t *testing.T, sh *shell, line string) {
	t.Helper()
	if _, err := sh.exec(strings.Fields(line)); err != nil {
		t.Fatalf("%q: %v", line, err)
	}
}

func checkCalls(t *testing.T, b *fakeBoard, want ...string) {
	t.Helper()
	if strings.Join(b.calls, "; ") != strings.Join(want, "; ") {
		t.Errorf("Expected calls %q, got %q", want, b.calls)
	}
}

func TestSetupRig(t *testing.T) {
	b := newFakeBoard()
	if err := setupRig(b, testRig()); err != nil {
		t.Fatalf("setupRig: %v", err)
	}
	checkCalls(t, b,
		"config 3", "attach 3 1 2 600 2300", "angle 3 45 0",
		"config 4", "attach 4 1 3 544 2400")

	// A second run finds the oids already bound
	b.calls = nil
	if err := setupRig(b, testRig()); err != nil {
		t.Errorf("Expected re-setup to succeed, got %v", err)
	}
}

func TestShellServoByName(t *testing.T) {
	sh, b, _ := newTestShell()

	run(t, sh, "angle pan 120")
	run(t, sh, "angle pan 10 5")
	run(t, sh, "us tilt 1500")
	run(t, sh, "detach tilt")

	checkCalls(t, b, "angle 3 120 25", "angle 3 10 5", "us 4 1500 0", "detach 4")
}

func TestShellServoByOID(t *testing.T) {
	sh, b, _ := newTestShell()

	run(t, sh, "us 7 2000 10")
	run(t, sh, "attach 7 0 5")
	run(t, sh, "attach 8 0 6 1000 2000")

	checkCalls(t, b, "us 7 2000 10", "config 7", "attach 7 0 5 0 0", "config 8", "attach 8 0 6 1000 2000")
}

func TestShellErrors(t *testing.T) {
	sh, _, _ := newTestShell()

	for _, line := range []string{
		"bogus",
		"angle pan",
		"angle nobody 90",
		"us pan wide",
		"us 300 1500",
		"attach 1 2",
		"attach ghost",
		"angle pan 90 300",
	} {
		if _, err := sh.exec(strings.Fields(line)); err == nil {
			t.Errorf("Expected error for %q", line)
		}
	}
}

func TestShellQuit(t *testing.T) {
	sh, _, _ := newTestShell()
	for _, q := range []string{"quit", "exit", "q"} {
		quit, err := sh.exec([]string{q})
		if err != nil || !quit {
			t.Errorf("Expected %q to quit, got quit=%v err=%v", q, quit, err)
		}
	}
	if quit, _ := sh.exec([]string{"help"}); quit {
		t.Errorf("Expected help not to quit")
	}
}

func TestShellQueryAndConfig(t *testing.T) {
	sh, _, out := newTestShell()

	run(t, sh, "query pan")
	if !strings.Contains(out.String(), "oid=3 us=1472 angle=90 attached=true moving=false") {
		t.Errorf("Expected query output, got %q", out.String())
	}

	out.Reset()
	run(t, sh, "config")
	if !strings.Contains(out.String(), "capacity=48") || !strings.Contains(out.String(), "groups=4") {
		t.Errorf("Expected config output, got %q", out.String())
	}
}

func TestShellSweep(t *testing.T) {
	sweepPoll = 0
	sh, b, _ := newTestShell()
	b.moving = 3

	run(t, sh, "sweep tilt")
	checkCalls(t, b, "angle 4 0 50", "angle 4 180 50", "angle 4 90 50")
	if b.moving != 0 {
		t.Errorf("Expected sweep to wait for the ramp, %d moving replies unread", b.moving)
	}
}

func TestShellEstop(t *testing.T) {
	sh, b, _ := newTestShell()
	run(t, sh, "estop")
	checkCalls(t, b, "estop")
}
