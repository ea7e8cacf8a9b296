//go:build !tinygo

package core

// State is a placeholder for interrupt state on regular Go
type State uintptr

// criticalDepth counts open critical sections so tests can check they balance.
var criticalDepth int

// disableInterrupts is a no-op on regular Go (for testing)
func disableInterrupts() State {
	criticalDepth++
	return State(criticalDepth)
}

// restoreInterrupts is a no-op on regular Go (for testing)
func restoreInterrupts(state State) {
	criticalDepth = int(state) - 1
}

// inCriticalSection reports whether a critical section is open
func inCriticalSection() bool {
	return criticalDepth > 0
}
