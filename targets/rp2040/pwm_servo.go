//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/servo"

	"servoplex/core"
	"servoplex/protocol"
)

// PWM servos bypass the multiplexer: each one owns a channel of a hardware
// PWM slice, which takes pins off the multiplexed ports.
var pwmServos = make(map[uint8]servo.Servo)

// InitPWMServoCommands registers servo_pwm_set
func InitPWMServoCommands() {
	core.RegisterCommand("servo_pwm_set", "pin=%c us=%hu", handlePWMServoSet)
}

// pwmSlice returns the PWM slice driving GPIO pin.
// GPIO N maps to slice (N >> 1) & 7, channel N & 1.
func pwmSlice(pin uint8) servo.PWM {
	switch (pin >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

func handlePWMServoSet(data *[]byte) error {
	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	us, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	if pin >= numGPIO {
		core.DebugPrintln("[PWM] bad pin " + itoa(int(pin)))
		return nil
	}

	s, ok := pwmServos[uint8(pin)]
	if !ok {
		s, err = servo.New(pwmSlice(uint8(pin)), machine.Pin(pin))
		if err != nil {
			core.DebugPrintln("[PWM] pin " + itoa(int(pin)) + ": " + err.Error())
			return nil
		}
		pwmServos[uint8(pin)] = s
	}

	if us > 0x7FFF {
		us = 0x7FFF
	}
	s.SetMicroseconds(int16(us))
	return nil
}
