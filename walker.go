package flatrec

import (
	"fmt"
	"unsafe"

	"github.com/rawbytedev/flatrec/internal/common"
)

// bump carves branched-array placeholder storage out of a single
// forward-moving region. Every grant is rounded up to 8 bytes so
// placeholders stay word aligned.
type bump struct {
	buf []byte
	off int
}

func (a *bump) take(n int) []byte {
	if n == 0 {
		return nil
	}
	end := a.off + n
	s := a.buf[a.off:end:end]
	a.off = common.Align8(end)
	return s
}

// readLen decodes and validates one array length prefix.
func (l *Loader) readLen(buf []byte, cur int) (int, int, error) {
	n, ok := common.ReadLen(buf, cur)
	if !ok {
		return 0, 0, fmt.Errorf("%w: length prefix at offset %d", ErrTooShort, cur)
	}
	if n > l.maxLen() {
		return 0, 0, fmt.Errorf("%w: %d at offset %d", ErrArrayTooLong, n, cur)
	}
	return int(n), cur + common.LenSize, nil
}

// sizeRecord measures the bytes of buf one record consumes starting at
// cur, and the placeholder storage its branched arrays will need. It is
// read-only and idempotent.
func (l *Loader) sizeRecord(p *plan, buf []byte, cur int) (next, extra int, err error) {
	cur, err = sizeHeader(p, buf, cur)
	if err != nil {
		return 0, 0, err
	}
	return l.sizeArrays(p, buf, cur)
}

func sizeHeader(p *plan, buf []byte, cur int) (int, error) {
	if cur+p.fixedSize > len(buf) {
		return 0, fmt.Errorf("%w: fixed region at offset %d", ErrTooShort, cur)
	}
	return cur + p.fixedSize, nil
}

func (l *Loader) sizeArrays(p *plan, buf []byte, cur int) (next, extra int, err error) {
	for i := range p.fields {
		f := &p.fields[i]
		var e int
		switch f.class {
		case classRecord:
			cur, e, err = l.sizeArrays(f.rec, buf, cur)
		case classString:
			cur, err = l.sizeByteRun(buf, cur)
		case classArray:
			cur, e, err = l.sizeBlock(f.cell, buf, cur)
		default:
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		extra += e
	}
	return cur, extra, nil
}

// sizeByteRun measures one string block: length prefix plus raw bytes.
func (l *Loader) sizeByteRun(buf []byte, cur int) (int, error) {
	n, cur, err := l.readLen(buf, cur)
	if err != nil {
		return 0, err
	}
	if n > len(buf)-cur {
		return 0, fmt.Errorf("%w: %d payload bytes at offset %d", ErrTooShort, n, cur)
	}
	return cur + n, nil
}

func (l *Loader) sizeBlock(c *cell, buf []byte, cur int) (next, extra int, err error) {
	n, cur, err := l.readLen(buf, cur)
	if err != nil {
		return 0, 0, err
	}
	if !c.dynamic {
		nb := n * int(c.size)
		if c.size != 0 && n > (len(buf)-cur)/int(c.size) {
			return 0, 0, fmt.Errorf("%w: %d payload bytes at offset %d", ErrTooShort, nb, cur)
		}
		return cur + nb, 0, nil
	}
	extra = common.Align8(n * int(c.size))
	for i := 0; i < n; i++ {
		var e int
		switch c.kind {
		case cellRecord:
			cur, e, err = l.sizeRecord(c.rec, buf, cur)
		case cellString:
			cur, err = l.sizeByteRun(buf, cur)
		case cellSlice:
			cur, e, err = l.sizeBlock(c.inner, buf, cur)
		}
		if err != nil {
			return 0, 0, err
		}
		extra += e
	}
	return cur, extra, nil
}

// patchRecord copies the fixed region into the record at base and
// assigns every dynamic field a view: value payloads alias buf, branched
// placeholders come from a. Traversal order matches sizeRecord exactly.
// On error the record contents are undefined.
func (l *Loader) patchRecord(p *plan, base unsafe.Pointer, buf []byte, cur int, a *bump) (int, error) {
	cur, err := l.patchHeader(p, base, buf, cur)
	if err != nil {
		return 0, err
	}
	return l.patchArrays(p, base, buf, cur, a)
}

func (l *Loader) patchHeader(p *plan, base unsafe.Pointer, buf []byte, cur int) (int, error) {
	if cur+p.fixedSize > len(buf) {
		return 0, fmt.Errorf("%w: fixed region at offset %d", ErrTooShort, cur)
	}
	for i := range p.fields {
		f := &p.fields[i]
		switch f.class {
		case classScalar:
			copy(common.BytesOf(unsafe.Add(base, f.off), f.width), buf[cur:cur+f.width])
			cur += f.width
		case classRecord:
			var err error
			cur, err = l.patchHeader(f.rec, unsafe.Add(base, f.off), buf, cur)
			if err != nil {
				return 0, err
			}
		}
	}
	return cur, nil
}

func (l *Loader) patchArrays(p *plan, base unsafe.Pointer, buf []byte, cur int, a *bump) (int, error) {
	var err error
	for i := range p.fields {
		f := &p.fields[i]
		ptr := unsafe.Add(base, f.off)
		switch f.class {
		case classRecord:
			cur, err = l.patchArrays(f.rec, ptr, buf, cur, a)
		case classString:
			cur, err = l.patchByteRun(ptr, buf, cur)
		case classArray:
			cur, err = l.patchBlock(f.cell, ptr, buf, cur, a)
		default:
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

func (l *Loader) patchByteRun(ptr unsafe.Pointer, buf []byte, cur int) (int, error) {
	n, cur, err := l.readLen(buf, cur)
	if err != nil {
		return 0, err
	}
	if n > len(buf)-cur {
		return 0, fmt.Errorf("%w: %d payload bytes at offset %d", ErrTooShort, n, cur)
	}
	if n == 0 {
		common.SetString(ptr, nil, 0)
		return cur, nil
	}
	common.SetString(ptr, unsafe.Pointer(&buf[cur]), n)
	return cur + n, nil
}

func (l *Loader) patchBlock(c *cell, ptr unsafe.Pointer, buf []byte, cur int, a *bump) (int, error) {
	n, cur, err := l.readLen(buf, cur)
	if err != nil {
		return 0, err
	}
	if !c.dynamic {
		nb := n * int(c.size)
		if c.size != 0 && n > (len(buf)-cur)/int(c.size) {
			return 0, fmt.Errorf("%w: %d payload bytes at offset %d", ErrTooShort, nb, cur)
		}
		if n == 0 {
			common.SetSlice(ptr, nil, 0)
			return cur, nil
		}
		data := unsafe.Pointer(&buf[cur])
		if l.Opts.CheckAlignment && uintptr(data)%c.align != 0 {
			return 0, fmt.Errorf("%w: %s view at offset %d", ErrUnaligned, c.typ, cur)
		}
		common.SetSlice(ptr, data, n)
		return cur + nb, nil
	}

	if n == 0 {
		common.SetSlice(ptr, nil, 0)
		return cur, nil
	}
	region := a.take(n * int(c.size))
	clear(region)
	common.SetSlice(ptr, unsafe.Pointer(&region[0]), n)
	for i := 0; i < n; i++ {
		elem := unsafe.Pointer(&region[i*int(c.size)])
		switch c.kind {
		case cellRecord:
			cur, err = l.patchRecord(c.rec, elem, buf, cur, a)
		case cellString:
			cur, err = l.patchByteRun(elem, buf, cur)
		case cellSlice:
			cur, err = l.patchBlock(c.inner, elem, buf, cur, a)
		}
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}
