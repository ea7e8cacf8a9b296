// Package protocol implements the framed serial link between servoplex
// firmware and host tools.
//
// A frame is
//
//	[len][seq][payload...][crc_hi][crc_lo][sync]
//
// where len counts the whole frame, seq carries SeqDest in its high nibble
// and a 4-bit sequence number in the low nibble, and the CRC covers len, seq
// and payload. A payload is a run of commands, each a VLQ command ID followed
// by its VLQ-encoded arguments.
package protocol

// Version is reported in the firmware dictionary
const Version = "servoplex-0.1.0"

const (
	FrameHeaderSize  = 2
	FrameTrailerSize = 3
	FrameMin         = FrameHeaderSize + FrameTrailerSize
	FrameMax         = 64
	PayloadMax       = FrameMax - FrameMin

	posLen = 0
	posSeq = 1

	SyncByte = 0x7E
	SeqDest  = 0x10
	SeqMask  = 0x0F
)

// NextSeq returns the sequence byte following seq
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & SeqMask) | SeqDest
}
