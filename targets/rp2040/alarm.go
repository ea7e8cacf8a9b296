//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"servoplex/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM0   = timerBase + 0x10 // ALARMn at timerALARM0 + 4*n
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word, no latching
	timerINTR     = timerBase + 0x34 // Raw interrupts, write 1 to clear
	timerINTE     = timerBase + 0x38 // Interrupt enable
)

var (
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntr = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// alarmClock is the 1MHz microsecond timer, undivided
var alarmClock = core.TickClock{ClockHz: 1000000, Prescale: 1}

// alarmTimer runs one servo group on a TIMER alarm. The alarms compare
// against the shared 32-bit microsecond counter, so each group keeps its own
// base and presents the time since its last reset as a 16-bit counter.
type alarmTimer struct {
	n       uint8
	alarm   *volatile.Register32
	base    uint32
	handler func()
}

// Alarm 0 belongs to the TinyGo runtime's sleep
var alarms = [3]*alarmTimer{
	newAlarmTimer(1),
	newAlarmTimer(2),
	newAlarmTimer(3),
}

func newAlarmTimer(n uint8) *alarmTimer {
	return &alarmTimer{
		n:     n,
		alarm: (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM0 + 4*uint32(n)))),
	}
}

// InitAlarms hooks the alarm interrupts. interrupt.New needs a constant IRQ
// number, hence one handler per alarm. Each alarm is then gated by its INTE
// bit alone.
func InitAlarms() {
	timerInte.ClearBits(0xE)
	timerIntr.Set(0xE)

	irqs := [...]interrupt.Interrupt{
		interrupt.New(rp.IRQ_TIMER_IRQ_1, alarm1ISR),
		interrupt.New(rp.IRQ_TIMER_IRQ_2, alarm2ISR),
		interrupt.New(rp.IRQ_TIMER_IRQ_3, alarm3ISR),
	}
	for _, irq := range irqs {
		irq.SetPriority(0x00)
		irq.Enable()
	}
}

func alarm1ISR(interrupt.Interrupt) { alarms[0].fire() }
func alarm2ISR(interrupt.Interrupt) { alarms[1].fire() }
func alarm3ISR(interrupt.Interrupt) { alarms[2].fire() }

func (a *alarmTimer) fire() {
	timerIntr.Set(1 << a.n)
	if a.handler != nil {
		a.handler()
	}
}

// Configure has nothing to do: the counter free-runs from reset
func (a *alarmTimer) Configure() error {
	return nil
}

func (a *alarmTimer) Counter() uint16 {
	return uint16(timerRAWL.Get() - a.base)
}

func (a *alarmTimer) ResetCounter() {
	a.base = timerRAWL.Get()
}

// SetCompare arms the alarm for when the group counter next reads deadline.
// Writing ALARMn also arms it.
func (a *alarmTimer) SetCompare(deadline uint16) {
	now := timerRAWL.Get()
	delta := deadline - uint16(now-a.base)
	a.alarm.Set(now + uint32(delta))
}

func (a *alarmTimer) SetHandler(handler func()) {
	a.handler = handler
}

func (a *alarmTimer) SetInterruptEnabled(enabled bool) {
	if enabled {
		timerIntr.Set(1 << a.n)
		timerInte.SetBits(1 << a.n)
	} else {
		timerInte.ClearBits(1 << a.n)
	}
}
