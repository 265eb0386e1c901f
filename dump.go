package flatrec

import (
	"unsafe"

	"github.com/rawbytedev/flatrec/internal/common"
)

// Dump appends the wire form of the record pointed to by in onto dst
// and returns the grown buffer. The traversal order is the same one the
// size and patch passes reproduce: fixed scalar region first, then one
// length-prefixed block per dynamic field in declaration order, with an
// array's sub-blocks immediately after its payload.
func (l *Loader) Dump(in any, dst []byte) ([]byte, error) {
	p, base, err := l.recordOf(in)
	if err != nil {
		return nil, err
	}
	dst = dumpHeader(p, base, dst)
	return dumpArrays(p, base, dst), nil
}

func dumpHeader(p *plan, base unsafe.Pointer, dst []byte) []byte {
	for i := range p.fields {
		f := &p.fields[i]
		switch f.class {
		case classScalar:
			dst = append(dst, common.BytesOf(unsafe.Add(base, f.off), f.width)...)
		case classRecord:
			dst = dumpHeader(f.rec, unsafe.Add(base, f.off), dst)
		}
	}
	return dst
}

func dumpArrays(p *plan, base unsafe.Pointer, dst []byte) []byte {
	for i := range p.fields {
		f := &p.fields[i]
		ptr := unsafe.Add(base, f.off)
		switch f.class {
		case classRecord:
			dst = dumpArrays(f.rec, ptr, dst)
		case classString:
			dst = dumpByteRun(ptr, dst)
		case classArray:
			dst = dumpBlock(f.cell, ptr, dst)
		}
	}
	return dst
}

func dumpByteRun(ptr unsafe.Pointer, dst []byte) []byte {
	data, n := common.StringData(ptr)
	dst = common.AppendLen(dst, uint64(n))
	if n > 0 {
		dst = append(dst, common.BytesOf(data, n)...)
	}
	return dst
}

func dumpBlock(c *cell, ptr unsafe.Pointer, dst []byte) []byte {
	data, n := common.SliceData(ptr)
	dst = common.AppendLen(dst, uint64(n))
	if n == 0 {
		return dst
	}
	if !c.dynamic {
		return append(dst, common.BytesOf(data, n*int(c.size))...)
	}
	for i := 0; i < n; i++ {
		elem := unsafe.Add(data, i*int(c.size))
		switch c.kind {
		case cellRecord:
			dst = dumpHeader(c.rec, elem, dst)
			dst = dumpArrays(c.rec, elem, dst)
		case cellString:
			dst = dumpByteRun(elem, dst)
		case cellSlice:
			dst = dumpBlock(c.inner, elem, dst)
		}
	}
	return dst
}
