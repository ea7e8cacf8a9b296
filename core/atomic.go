package core

// atomicSection keeps interrupts masked between enterAtomic and exit.
// Use as `defer enterAtomic().exit()` so the prior state is restored on every
// return path.
type atomicSection struct {
	state State
}

func enterAtomic() atomicSection {
	return atomicSection{state: disableInterrupts()}
}

func (s atomicSection) exit() {
	restoreInterrupts(s.state)
}
