//go:build atmega2560

package main

import (
	"runtime/interrupt"
	"runtime/volatile"

	"servoplex/core"
)

// avrPort is one 8-bit I/O port. Only the bits in mask are driven.
type avrPort struct {
	port, ddr *volatile.Register8
	mask      uint8
}

func newAVRPort(portAddr, ddrAddr uintptr, mask uint8) *avrPort {
	p := &avrPort{port: reg8(portAddr), ddr: reg8(ddrAddr), mask: mask}
	p.port.Set(p.port.Get() &^ mask)
	p.ddr.Set(p.ddr.Get() | mask)
	return p
}

// HasBit reports whether bit is a line this port drives
func (p *avrPort) HasBit(bit uint8) bool {
	return bit <= 7 && p.mask&(1<<bit) != 0
}

// Set drives one line. PORTH and above sit outside the SBI/CBI range, so the
// read-modify-write is guarded against the servo interrupts.
func (p *avrPort) Set(bit uint8, high bool) {
	if !p.HasBit(bit) {
		return
	}
	state := interrupt.Disable()
	v := p.port.Get()
	if high {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	p.port.Set(v)
	interrupt.Restore(state)
}

// InitPorts exposes PORTA..PORTL as ports 0..10. PE0/PE1 carry the host
// UART and PD2/PD3 the debug UART; they are never driven.
func InitPorts() {
	core.SetPortTable(core.PortList{
		newAVRPort(0x22, 0x21, 0xFF),   // 0: PORTA
		newAVRPort(0x25, 0x24, 0xFF),   // 1: PORTB
		newAVRPort(0x28, 0x27, 0xFF),   // 2: PORTC
		newAVRPort(0x2B, 0x2A, 0xF3),   // 3: PORTD
		newAVRPort(0x2E, 0x2D, 0xFC),   // 4: PORTE
		newAVRPort(0x31, 0x30, 0xFF),   // 5: PORTF
		newAVRPort(0x34, 0x33, 0x3F),   // 6: PORTG, 6 pins
		newAVRPort(0x102, 0x101, 0xFF), // 7: PORTH
		newAVRPort(0x105, 0x104, 0xFF), // 8: PORTJ
		newAVRPort(0x108, 0x107, 0xFF), // 9: PORTK
		newAVRPort(0x10B, 0x10A, 0xFF), // 10: PORTL
	})
}
