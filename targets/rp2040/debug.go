//go:build rp2040

package main

import (
	"machine"

	"servoplex/core"
)

// Debug output goes to UART1 on GPIO20 (TX) and GPIO21 (RX) at 115200 baud.
// USB carries the host link, so it cannot share.
var debugUART = machine.UART1

// InitDebugUART routes core debug messages to UART1
func InitDebugUART() {
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO20,
		RX:       machine.GPIO21,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.DebugPrintln("=== servoplex rp2040 ===")
}
