package flatrec

import (
	"github.com/rawbytedev/flatrec/internal/common"
)

// Load patches buf in place and fills out with a record whose dynamic
// fields alias buf. The record type must have no branched arrays.
// Aliasing contract: the record is valid while buf stays untouched.
func (l *Loader) Load(buf []byte, out any) error {
	_, err := l.setSlices(buf, out, nil, false)
	return err
}

// LoadExtend grows buf by exactly the branched storage the record needs
// and patches out against it. It returns the buffer backing the record,
// which may have been reallocated; the caller must keep it alive and
// must not resize it while the record is in use.
func (l *Loader) LoadExtend(buf []byte, out any) ([]byte, error) {
	p, _, err := l.recordOf(out)
	if err != nil {
		return nil, err
	}
	consumed, rawExtra, err := l.sizeRecord(p, buf, 0)
	if err != nil {
		return nil, err
	}
	if rawExtra == 0 {
		buf = buf[:consumed]
		if _, err := l.setSlices(buf, out, nil, true); err != nil {
			return nil, err
		}
		return buf, nil
	}
	padded := common.Align8(consumed)
	need := padded + rawExtra
	if cap(buf) >= need {
		buf = buf[:need]
		clear(buf[consumed:])
	} else {
		nb := make([]byte, need)
		copy(nb, buf[:consumed])
		buf = nb
	}
	a := &bump{buf: buf[padded:need]}
	if _, err := l.setSlices(buf, out, a, true); err != nil {
		return nil, err
	}
	return buf, nil
}

// LoadCopy copies src's consumed prefix into dst (allocating dst when
// nil, growing it when short, keeping spare length when onlyExtend is
// set), zero-fills the stale tail, then extends and patches against dst
// exactly as LoadExtend does. src is left untouched; the record aliases
// the returned dst.
func (l *Loader) LoadCopy(dst, src []byte, out any, onlyExtend bool) ([]byte, error) {
	p, _, err := l.recordOf(out)
	if err != nil {
		return nil, err
	}
	consumed, rawExtra, err := l.sizeRecord(p, src, 0)
	if err != nil {
		return nil, err
	}
	padded := consumed
	if rawExtra > 0 {
		padded = common.Align8(consumed)
	}
	need := padded + rawExtra
	if cap(dst) < need {
		nd := make([]byte, need)
		copy(nd, src[:consumed])
		dst = nd
	} else {
		n := need
		if onlyExtend && len(dst) > need {
			n = len(dst)
		}
		dst = dst[:n]
		copy(dst, src[:consumed])
		clear(dst[consumed:])
	}
	var a *bump
	if rawExtra > 0 {
		a = &bump{buf: dst[padded : padded+rawExtra]}
	}
	if _, err := l.setSlices(dst, out, a, true); err != nil {
		return nil, err
	}
	return dst, nil
}

// LoadSlice keeps src read-only: branched arrays are patched into the
// slices buffer, which is resized to fit and returned, while value
// arrays still alias src. Both src and the returned slices buffer back
// the record.
func (l *Loader) LoadSlice(src, slices []byte, out any, onlyExtend bool) ([]byte, error) {
	p, _, err := l.recordOf(out)
	if err != nil {
		return nil, err
	}
	_, rawExtra, err := l.sizeRecord(p, src, 0)
	if err != nil {
		return nil, err
	}
	if cap(slices) < rawExtra {
		slices = make([]byte, rawExtra)
	} else {
		n := rawExtra
		if onlyExtend && len(slices) > rawExtra {
			n = len(slices)
		}
		slices = slices[:n]
	}
	var a *bump
	if rawExtra > 0 {
		a = &bump{buf: slices[:rawExtra]}
	}
	if _, err := l.setSlices(src, out, a, true); err != nil {
		return nil, err
	}
	return slices, nil
}

// SliceArraysBytes runs only the size pass: consumed is the prefix of
// data the record occupies, extra the bytes LoadExtend would append.
func (l *Loader) SliceArraysBytes(data []byte, out any) (consumed, extra int, err error) {
	p, _, err := l.recordOf(out)
	if err != nil {
		return 0, 0, err
	}
	consumed, raw, err := l.sizeRecord(p, data, 0)
	if err != nil {
		return 0, 0, err
	}
	if raw > 0 {
		extra = common.Align8(consumed) - consumed + raw
	}
	return consumed, extra, nil
}

// setSlices patches out against buf and returns the consumed prefix.
// Branched placeholder storage comes from a.
func (l *Loader) setSlices(buf []byte, out any, a *bump, allowBranched bool) ([]byte, error) {
	p, base, err := l.recordOf(out)
	if err != nil {
		return nil, err
	}
	if !allowBranched && p.branched {
		return nil, ErrBranched
	}
	cur, err := l.patchRecord(p, base, buf, 0, a)
	if err != nil {
		return nil, err
	}
	return buf[:cur], nil
}
