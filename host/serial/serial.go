// Package serial opens the link to servoplex firmware.
package serial

import (
	"errors"
	"io"
)

var ErrNoDevice = errors.New("no serial device given")

// Port is the byte stream the host transport runs over. Reads return
// (0, nil) when the read timeout expires with no data; io.EOF means the
// device is gone.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate. USB CDC boards ignore it; UART links must match the firmware.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud matches the firmware's UART configuration
const DefaultBaud = 115200

// DefaultConfig returns the configuration servoctl uses for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return errors.New("baud rate must be positive")
	}
	return nil
}
