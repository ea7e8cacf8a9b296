package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultAckTimeout is how long SendCommand waits for the firmware's ack
const DefaultAckTimeout = 2 * time.Second

var ErrTransportClosed = errors.New("transport closed")

// HostTransport is the host side of the link: it sends commands, waits
// for acks and queues the firmware's responses.
type HostTransport struct {
	port io.ReadWriteCloser

	writeMu sync.Mutex
	seq     uint8 // Sequence of the next frame we send

	acks      chan uint8
	responses chan []byte

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHostTransport creates a host transport and starts its reader goroutine
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		seq:       SeqDest,
		acks:      make(chan uint8, 4),
		responses: make(chan []byte, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits for the firmware to ack it
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultAckTimeout)
}

// SendCommandWithTimeout is SendCommand with a custom ack timeout
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	if scratch.Overflowed() {
		return ErrFrameTooLong
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	frame, err := AppendFrame(nil, t.seq, scratch.Result())
	if err != nil {
		return err
	}
	if _, err := t.port.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	want := NextSeq(t.seq)
	deadline := time.After(timeout)
	for {
		select {
		case seq := <-t.acks:
			if seq != want {
				// Stale ack from an earlier exchange
				continue
			}
			t.seq = want
			return nil
		case <-deadline:
			return fmt.Errorf("ack timeout after %v", timeout)
		case <-t.stop:
			return ErrTransportClosed
		}
	}
}

// ReceiveResponse returns the next message payload from the firmware
func (t *HostTransport) ReceiveResponse(timeout time.Duration) ([]byte, error) {
	select {
	case resp := <-t.responses:
		return resp, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("response timeout after %v", timeout)
	case <-t.stop:
		return nil, ErrTransportClosed
	}
}

// TryReceiveResponse returns a queued response without waiting
func (t *HostTransport) TryReceiveResponse() ([]byte, bool) {
	select {
	case resp := <-t.responses:
		return resp, true
	default:
		return nil, false
	}
}

// Drain discards queued responses
func (t *HostTransport) Drain() {
	for {
		select {
		case <-t.responses:
		default:
			return
		}
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, 256)
	var pending []byte

	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = t.process(pending)
		}
		if err != nil {
			select {
			case <-t.stop:
				return
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				t.shutdown()
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// process consumes complete frames from data and returns the remainder
func (t *HostTransport) process(data []byte) []byte {
	for len(data) > 0 {
		if data[0] == SyncByte {
			data = data[1:]
			continue
		}

		frame, n, err := ParseFrame(data)
		if err == ErrNeedMore {
			break
		}
		if err != nil {
			data = data[SkipToSync(data):]
			continue
		}

		if len(frame.Payload) == 0 {
			select {
			case t.acks <- frame.Seq:
			default:
			}
		} else {
			payload := make([]byte, len(frame.Payload))
			copy(payload, frame.Payload)
			t.queueResponse(payload)
		}
		data = data[n:]
	}

	// Keep the remainder in its own array so pending does not grow forever
	return append([]byte(nil), data...)
}

// queueResponse never blocks the reader; when nobody is collecting
// responses the oldest one is dropped.
func (t *HostTransport) queueResponse(payload []byte) {
	for {
		select {
		case t.responses <- payload:
			return
		default:
		}
		select {
		case <-t.responses:
		default:
		}
	}
}

func (t *HostTransport) shutdown() {
	t.closeOnce.Do(func() { close(t.stop) })
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	t.shutdown()
	err := t.port.Close()
	<-t.done
	return err
}
