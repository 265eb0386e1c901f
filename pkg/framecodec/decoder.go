package framecodec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
)

// Decoder parses record frames. The returned payload aliases data for
// uncompressed frames and a reused internal buffer for compressed ones.
type Decoder struct {
	zdec *zstd.Decoder
	raw  []byte
}

// DecodeRecordFrame verifies framing and checksum and returns the
// payload and flags.
func (d *Decoder) DecodeRecordFrame(data []byte) ([]byte, byte, error) {
	if len(data) < headerSize+trailerSize {
		return nil, 0, ErrFrameTooShort
	}
	rdr := bytes.NewReader(data)
	t, err := readPreamble(rdr)
	if err != nil {
		return nil, 0, err
	}
	if t != TypeRecord {
		return nil, 0, ErrBadFrameType
	}

	var length uint32
	binary.Read(rdr, binary.LittleEndian, &length)
	flags, _ := rdr.ReadByte()
	if int(length) != len(data) {
		return nil, 0, ErrLengthMismatch
	}

	payloadEnd := len(data) - trailerSize
	want := binary.LittleEndian.Uint32(data[payloadEnd:])
	if crc32.ChecksumIEEE(data[2:payloadEnd]) != want {
		return nil, 0, ErrBadChecksum
	}
	payload := data[headerSize:payloadEnd]

	if flags&FlagZstd != 0 {
		if d.zdec == nil {
			dec, err := zstd.NewReader(nil)
			if err != nil {
				return nil, 0, err
			}
			d.zdec = dec
		}
		d.raw, err = d.zdec.DecodeAll(payload, d.raw[:0])
		if err != nil {
			return nil, 0, err
		}
		payload = d.raw
	}
	return payload, flags, nil
}
