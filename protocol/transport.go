package protocol

import "io"

// CommandHandler handles one decoded command. It decodes its own arguments
// from data, leaving data positioned at the next command.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware side of the link. It is driven from the main
// loop only.
type Transport struct {
	out     io.Writer
	handler CommandHandler

	synced   bool
	expected uint8 // Next sequence expected from the host
	scratch  ScratchOutput
	frame    []byte

	resetCallback func()

	// Counters for diagnostics
	BadFrames     uint32
	HandlerErrors uint32
	WriteErrors   uint32
}

// NewTransport creates a Transport writing its frames to out
func NewTransport(out io.Writer, handler CommandHandler) *Transport {
	return &Transport{
		out:      out,
		handler:  handler,
		synced:   true,
		expected: SeqDest,
		frame:    make([]byte, 0, FrameMax),
	}
}

// SetResetCallback sets a callback run when the host restarts its sequence
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// Receive processes every complete frame at the front of data and returns the
// number of bytes consumed. Unconsumed bytes are a partial frame the caller
// should present again with more data appended.
func (t *Transport) Receive(data []byte) int {
	pos := 0
	for pos < len(data) {
		rest := data[pos:]

		if !t.synced {
			skip := SkipToSync(rest)
			pos += skip
			if skip <= len(rest) && rest[skip-1] == SyncByte {
				t.synced = true
				t.sendAck()
			}
			continue
		}

		if rest[0] == SyncByte {
			pos++
			continue
		}

		frame, n, err := ParseFrame(rest)
		if err == ErrNeedMore {
			break
		}
		if err != nil {
			t.BadFrames++
			t.synced = false
			continue
		}
		pos += n

		if frame.Seq == SeqDest && t.expected != SeqDest {
			t.expected = SeqDest
			if t.resetCallback != nil {
				t.resetCallback()
			}
		}
		if frame.Seq == t.expected {
			t.expected = NextSeq(frame.Seq)
			t.dispatch(frame.Payload)
		}
		// A repeated or out of order frame still gets an ack carrying the
		// sequence we want next.
		t.sendAck()
	}
	return pos
}

func (t *Transport) dispatch(payload []byte) {
	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.BadFrames++
			return
		}
		if t.handler == nil {
			return
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			t.HandlerErrors++
			return
		}
	}
}

func (t *Transport) sendAck() {
	t.write(nil)
}

// SendCommand sends one message to the host
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.scratch.Reset()
	EncodeVLQUint(&t.scratch, uint32(cmdID))
	if args != nil {
		args(&t.scratch)
	}
	if t.scratch.Overflowed() {
		t.WriteErrors++
		return
	}
	t.write(t.scratch.Result())
}

func (t *Transport) write(payload []byte) {
	var err error
	t.frame, err = AppendFrame(t.frame[:0], t.expected, payload)
	if err != nil {
		t.WriteErrors++
		return
	}
	if _, err := t.out.Write(t.frame); err != nil {
		t.WriteErrors++
	}
}

// Reset returns the transport to its power-on state
func (t *Transport) Reset() {
	t.synced = true
	t.expected = SeqDest
	if t.resetCallback != nil {
		t.resetCallback()
	}
}
