//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt-enable state
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}

// inCriticalSection is only meaningful on host builds
func inCriticalSection() bool {
	return false
}
