package core

import "errors"

var ErrPinOutOfRange = errors.New("pin index out of range")

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface used by PinPort.
// SetPin must be safe to call from interrupt context.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool)
}

// PinPort is an OutputPort made of individually addressed pins, for boards
// without byte-wide output registers. Bit n of the port is Pins[n].
type PinPort struct {
	driver GPIODriver
	pins   []GPIOPin
}

// NewPinPort configures every pin as a low output
func NewPinPort(driver GPIODriver, pins ...GPIOPin) (*PinPort, error) {
	for _, pin := range pins {
		if err := driver.ConfigureOutput(pin); err != nil {
			return nil, err
		}
		driver.SetPin(pin, false)
	}
	return &PinPort{driver: driver, pins: pins}, nil
}

// Set drives bit of the port. Out of range bits are ignored.
func (p *PinPort) Set(bit uint8, high bool) {
	if int(bit) >= len(p.pins) {
		return
	}
	p.driver.SetPin(p.pins[bit], high)
}

// HasBit reports whether bit maps to a pin
func (p *PinPort) HasBit(bit uint8) bool {
	return int(bit) < len(p.pins)
}

// Pin returns the GPIO behind bit
func (p *PinPort) Pin(bit uint8) (GPIOPin, error) {
	if int(bit) >= len(p.pins) {
		return 0, ErrPinOutOfRange
	}
	return p.pins[bit], nil
}
