//go:build atmega2560

package main

import (
	"machine"

	"servoplex/core"
)

// Debug output goes to USART1 (TXD1 = PD3, RXD1 = PD2) at 115200 baud.
// USART0 carries the host link.
var debugUART = machine.UART1

// InitDebugUART routes core debug messages to USART1
func InitDebugUART() {
	debugUART.Configure(machine.UARTConfig{BaudRate: 115200})

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.DebugPrintln("=== servoplex mega2560 ===")
}
