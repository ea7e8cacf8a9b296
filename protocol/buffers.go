package protocol

// OutputBuffer receives encoded bytes
type OutputBuffer interface {
	Output(data []byte)
}

// ScratchOutput is an OutputBuffer over a fixed array, sized for one payload
type ScratchOutput struct {
	buf [FrameMax]byte
	pos int
}

// NewScratchOutput creates an empty ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

// Output appends data, silently truncating once the buffer is full.
// Overflowed() reports whether that happened.
func (s *ScratchOutput) Output(data []byte) {
	if s.pos > len(s.buf) {
		return
	}
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.pos = len(s.buf) + 1
	}
}

// Overflowed reports whether more data was written than fits
func (s *ScratchOutput) Overflowed() bool {
	return s.pos > len(s.buf)
}

// Result returns the bytes written so far
func (s *ScratchOutput) Result() []byte {
	if s.pos > len(s.buf) {
		return s.buf[:]
	}
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}
