package framecodec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
)

// Encoder builds record frames. The internal buffers are reused across
// calls; the returned slice is only valid until the next call.
type Encoder struct {
	buf  *bytes.Buffer
	zenc *zstd.Encoder
	comp []byte
}

// EncodeRecordFrame wraps payload into a record frame. With FlagZstd
// set the payload is compressed before framing.
func (e *Encoder) EncodeRecordFrame(payload []byte, flags byte) ([]byte, error) {
	if flags&FlagZstd != 0 {
		if e.zenc == nil {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
			if err != nil {
				return nil, err
			}
			e.zenc = enc
		}
		e.comp = e.zenc.EncodeAll(payload, e.comp[:0])
		payload = e.comp
	}

	if e.buf == nil {
		e.buf = &bytes.Buffer{}
	}
	e.buf.Reset()
	writePreamble(e.buf, TypeRecord)
	binary.Write(e.buf, binary.LittleEndian, uint32(0)) // length placeholder
	e.buf.WriteByte(flags)
	e.buf.Write(payload)

	out := e.buf.Bytes()
	total := uint32(len(out) + trailerSize)
	binary.LittleEndian.PutUint32(out[3:], total)

	crc := crc32.ChecksumIEEE(out[2:])
	out = append(out, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(out[len(out)-trailerSize:], crc)
	return out, nil
}
