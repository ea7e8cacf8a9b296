//go:build atmega2560

package main

import (
	"device/avr"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"servoplex/core"
)

// Timer bits, identical on timers 1, 3, 4 and 5
const (
	csDiv8 = 1 << 1 // CSn1 in TCCRnB: clk/8
	ocieA  = 1 << 1 // OCIEnA in TIMSKn
	ocfA   = 1 << 1 // OCFnA in TIFRn
)

// avrTimer is one 16-bit timer in normal mode, interrupting on compare A
type avrTimer struct {
	tccrA, tccrB *volatile.Register8
	tcntL, tcntH *volatile.Register8
	ocrAL, ocrAH *volatile.Register8
	timsk, tifr  *volatile.Register8
	handler      func()
}

func reg8(addr uintptr) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(addr))
}

// newAVRTimer maps a timer whose register block starts at base (TCCRnA).
// The layout inside the block is the same for every 16-bit timer.
func newAVRTimer(base, timsk, tifr uintptr) *avrTimer {
	return &avrTimer{
		tccrA: reg8(base),
		tccrB: reg8(base + 1),
		tcntL: reg8(base + 4),
		tcntH: reg8(base + 5),
		ocrAL: reg8(base + 8),
		ocrAH: reg8(base + 9),
		timsk: reg8(timsk),
		tifr:  reg8(tifr),
	}
}

// Group order follows the Arduino Servo library, which takes timer 5 first
// so the timer 1 PWM pins stay usable longest.
var (
	timer5 = newAVRTimer(0x120, 0x73, 0x3A)
	timer1 = newAVRTimer(0x80, 0x6F, 0x36)
	timer3 = newAVRTimer(0x90, 0x71, 0x38)
	timer4 = newAVRTimer(0xA0, 0x72, 0x39)
)

// InitTimers hooks the compare A vectors. The vector clears OCFnA itself.
func InitTimers() []core.ServoTimer {
	interrupt.New(avr.IRQ_TIMER5_COMPA, timer5ISR)
	interrupt.New(avr.IRQ_TIMER1_COMPA, timer1ISR)
	interrupt.New(avr.IRQ_TIMER3_COMPA, timer3ISR)
	interrupt.New(avr.IRQ_TIMER4_COMPA, timer4ISR)

	return []core.ServoTimer{timer5, timer1, timer3, timer4}
}

func timer5ISR(interrupt.Interrupt) { timer5.fire() }
func timer1ISR(interrupt.Interrupt) { timer1.fire() }
func timer3ISR(interrupt.Interrupt) { timer3.fire() }
func timer4ISR(interrupt.Interrupt) { timer4.fire() }

func (t *avrTimer) fire() {
	if t.handler != nil {
		t.handler()
	}
}

// Configure selects normal mode at clk/8 and clears the counter
func (t *avrTimer) Configure() error {
	t.tccrA.Set(0)
	t.tccrB.Set(csDiv8)
	t.ResetCounter()
	t.tifr.Set(ocfA)
	return nil
}

// 16-bit registers go through the shared TEMP latch: read low first, write
// high first. The caller's interrupt state keeps the pair intact.

func (t *avrTimer) Counter() uint16 {
	state := interrupt.Disable()
	lo := t.tcntL.Get()
	hi := t.tcntH.Get()
	interrupt.Restore(state)
	return uint16(hi)<<8 | uint16(lo)
}

func (t *avrTimer) ResetCounter() {
	state := interrupt.Disable()
	t.tcntH.Set(0)
	t.tcntL.Set(0)
	interrupt.Restore(state)
}

func (t *avrTimer) SetCompare(deadline uint16) {
	state := interrupt.Disable()
	t.ocrAH.Set(uint8(deadline >> 8))
	t.ocrAL.Set(uint8(deadline))
	interrupt.Restore(state)
}

func (t *avrTimer) SetHandler(handler func()) {
	t.handler = handler
}

func (t *avrTimer) SetInterruptEnabled(enabled bool) {
	if enabled {
		t.tifr.Set(ocfA)
		t.timsk.SetBits(ocieA)
	} else {
		t.timsk.ClearBits(ocieA)
	}
}
