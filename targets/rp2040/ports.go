//go:build rp2040

package main

import (
	"machine"

	"servoplex/core"
)

// sioDriver drives pins through machine.Pin, which writes the SIO set/clear
// registers and so never disturbs other pins
type sioDriver struct{}

func (sioDriver) ConfigureOutput(pin core.GPIOPin) error {
	if pin >= numGPIO {
		return core.ErrPinOutOfRange
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (sioDriver) SetPin(pin core.GPIOPin, value bool) {
	machine.Pin(pin).Set(value)
}

const numGPIO = 30

// Ports 0 and 1 are GPIO 0..7 and 8..15. Port 2 skips GPIO20/21, the debug
// UART. GPIO 24..29 are left out: several boards use them for the LED, VBUS
// sense and the ADC.
var portPins = [][]core.GPIOPin{
	{0, 1, 2, 3, 4, 5, 6, 7},
	{8, 9, 10, 11, 12, 13, 14, 15},
	{16, 17, 18, 19, 22, 23},
}

// InitPorts builds the port table used by servo_attach
func InitPorts() error {
	ports := make(core.PortList, len(portPins))
	for i, pins := range portPins {
		p, err := core.NewPinPort(sioDriver{}, pins...)
		if err != nil {
			return err
		}
		ports[i] = p
	}
	core.SetPortTable(ports)
	return nil
}
