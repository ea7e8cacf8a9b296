package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("payload does not fit in a frame")
	ErrNeedMore     = errors.New("incomplete frame")
	ErrBadFrame     = errors.New("malformed frame")
)

// Frame is one decoded frame
type Frame struct {
	Seq     uint8
	Payload []byte // Aliases the input buffer
}

// AppendFrame appends a complete frame carrying payload to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, ErrFrameTooLong
	}

	start := len(dst)
	dst = append(dst, byte(len(payload)+FrameMin), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), SyncByte), nil
}

// ParseFrame decodes the frame at the front of data and returns it with the
// number of bytes it occupied. ErrNeedMore means data holds a valid prefix;
// ErrBadFrame means the caller should resynchronise on the next sync byte.
func ParseFrame(data []byte) (Frame, int, error) {
	if len(data) < FrameMin {
		return Frame{}, 0, ErrNeedMore
	}

	n := int(data[posLen])
	if n < FrameMin || n > FrameMax {
		return Frame{}, 0, ErrBadFrame
	}
	seq := data[posSeq]
	if seq&^SeqMask != SeqDest {
		return Frame{}, 0, ErrBadFrame
	}
	if len(data) < n {
		return Frame{}, 0, ErrNeedMore
	}
	if data[n-1] != SyncByte {
		return Frame{}, 0, ErrBadFrame
	}

	want := uint16(data[n-3])<<8 | uint16(data[n-2])
	if CRC16(data[:n-FrameTrailerSize]) != want {
		return Frame{}, 0, ErrBadFrame
	}

	return Frame{Seq: seq, Payload: data[FrameHeaderSize : n-FrameTrailerSize]}, n, nil
}

// SkipToSync returns the offset just past the next sync byte in data, or
// len(data) when there is none.
func SkipToSync(data []byte) int {
	for i, b := range data {
		if b == SyncByte {
			return i + 1
		}
	}
	return len(data)
}
