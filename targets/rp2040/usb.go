//go:build rp2040

package main

import (
	"machine"
)

// InitUSB configures machine.Serial, which is USB CDC-ACM on the RP2040.
// The USB descriptors are set by TinyGo's runtime.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of bytes available to read from USB
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from USB
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// usbWriter adapts machine.Serial for the transport
type usbWriter struct{}

// Write sends every byte of data, giving up after repeated stalls so a
// detached host cannot wedge the main loop.
func (usbWriter) Write(data []byte) (int, error) {
	written := 0
	stalls := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil {
			return written, err
		}
		if n == 0 {
			stalls++
			if stalls > 10 {
				return written, errUSBStalled
			}
			continue
		}
		written += n
	}
	return written, nil
}
