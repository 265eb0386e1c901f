package framecodec

import (
	"bytes"
	"errors"
	"io"
)

// A frame wraps one serialized record for storage or transport:
// [magic 2B] [type 1B] [total length 4B LE] [flags 1B] [payload] [CRC32 4B LE]
// The CRC covers everything after the magic, excluding itself. Total
// length counts the whole frame including magic and CRC.

const (
	magic0 = 0x46 // 'F'
	magic1 = 0x52 // 'R'

	TypeRecord byte = 0x01
	TypeError  byte = 0x02

	// FlagZstd marks a zstd-compressed payload.
	FlagZstd byte = 0x01

	headerSize  = 8 // magic + type + length + flags
	trailerSize = 4 // CRC32
)

var (
	ErrBadMagic       = errors.New("bad frame magic")
	ErrBadFrameType   = errors.New("unexpected frame type")
	ErrLengthMismatch = errors.New("frame length mismatch")
	ErrBadChecksum    = errors.New("frame checksum mismatch")
	ErrFrameTooShort  = errors.New("frame too short")
)

func writePreamble(buf *bytes.Buffer, frameType byte) {
	buf.WriteByte(magic0)
	buf.WriteByte(magic1)
	buf.WriteByte(frameType)
}

func readPreamble(rdr *bytes.Reader) (byte, error) {
	var m [3]byte
	if _, err := io.ReadFull(rdr, m[:]); err != nil {
		return 0, ErrFrameTooShort
	}
	if m[0] != magic0 || m[1] != magic1 {
		return 0, ErrBadMagic
	}
	return m[2], nil
}
