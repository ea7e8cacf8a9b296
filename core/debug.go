package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ServoEvent is one entry of the event ring. Recorded from both foreground
// and interrupt context, so it holds plain integers only.
type ServoEvent struct {
	Type   uint8  // Event type code
	ID     uint8  // Slot index or group number
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Event type codes
const (
	EvtAttach       = 1 // ID=slot, v1=bit
	EvtDetach       = 2 // ID=slot
	EvtGroupEnable  = 3 // ID=group
	EvtGroupDisable = 4 // ID=group
	EvtRampStart    = 5 // ID=slot, v1=target ticks, v2=step
	EvtRampDone     = 6 // ID=slot, v1=counter, v2=position
)

const (
	EventRingSize = 32 // Keep the last 32 events
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active
	debugEnabled bool

	eventRing     [EventRingSize]ServoEvent
	eventRingHead uint8
	eventsEnabled = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from interrupt context.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores an event in the ring buffer. Safe from interrupt context.
func RecordEvent(eventType, id uint8, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	state := disableInterrupts()
	idx := eventRingHead
	eventRing[idx] = ServoEvent{
		Type:   eventType,
		ID:     id,
		Value1: value1,
		Value2: value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	restoreInterrupts(state)
}

// Events returns the recorded events, oldest first
func Events() []ServoEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	out := make([]ServoEvent, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(eventRingHead+i)%EventRingSize]
		if evt.Type != 0 {
			out = append(out, evt)
		}
	}
	return out
}

func eventName(t uint8) string {
	switch t {
	case EvtAttach:
		return "ATTACH"
	case EvtDetach:
		return "DETACH"
	case EvtGroupEnable:
		return "GROUP_ON"
	case EvtGroupDisable:
		return "GROUP_OFF"
	case EvtRampStart:
		return "RAMP_START"
	case EvtRampDone:
		return "RAMP_DONE"
	}
	return "UNKNOWN"
}

// DumpEventRing writes the event ring through the debug writer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Servo event dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + eventName(evt.Type) +
			" id=" + itoa(int(evt.ID)) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range eventRing {
		eventRing[i] = ServoEvent{}
	}
	eventRingHead = 0
}
