//go:build !wasm

package serial

import (
	"fmt"
	"sort"
	"time"

	bugst "go.bug.st/serial"
)

// BugstPort wraps the go.bug.st/serial implementation. Unlike tarm/serial it
// can enumerate ports, and it reports an expired read timeout as (0, nil)
// already.
type BugstPort struct {
	port bugst.Port
	cfg  *Config
}

// OpenBugst opens a serial port through go.bug.st/serial
func OpenBugst(cfg *Config) (Port, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	port, err := bugst.Open(cfg.Device, &bugst.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	timeout := bugst.NoTimeout
	if cfg.ReadTimeout > 0 {
		timeout = time.Duration(cfg.ReadTimeout) * time.Millisecond
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Device, err)
	}

	p := &BugstPort{port: port, cfg: cfg}
	if err := p.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port %s: %w", cfg.Device, err)
	}
	return p, nil
}

// Read reads data from the serial port
func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *BugstPort) Close() error {
	return p.port.Close()
}

// Flush discards pending input and output
func (p *BugstPort) Flush() error {
	if err := p.port.ResetInputBuffer(); err != nil {
		return err
	}
	return p.port.ResetOutputBuffer()
}

// ListPorts returns the serial devices present on this machine, sorted
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Backend names accepted by OpenBackend
const (
	BackendTarm  = "tarm"
	BackendBugst = "bugst"
)

// OpenBackend opens cfg with the named implementation. An empty name selects
// tarm/serial.
func OpenBackend(backend string, cfg *Config) (Port, error) {
	switch backend {
	case "", BackendTarm:
		return Open(cfg)
	case BackendBugst:
		return OpenBugst(cfg)
	}
	return nil, fmt.Errorf("unknown serial backend %q", backend)
}
