package flatrec

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/rawbytedev/flatrec/internal/common"
)

// Versioned marks a record type that carries a one-byte schema version
// as the first byte of its wire form.
type Versioned interface {
	RecordVersion() byte
}

// Convertible links a versioned record type to the schema version
// before it. ConvertFrom is the schema author's field-copy step: fields
// it does not set keep their zero value.
type Convertible interface {
	Versioned
	// NewPrevious returns a pointer to a zero record of the previous
	// version, or nil when no earlier version exists.
	NewPrevious() any
	// ConvertFrom populates the receiver from a fully loaded previous
	// version record.
	ConvertFrom(prev any)
}

// VersionLoader wraps a Loader with version-tag handling. Buffers
// written under an older schema version are upgraded hop by hop through
// the type's conversion chain. The two scratch buffers alternate so a
// hop never serializes into the storage it is reading from.
type VersionLoader struct {
	Loader
	scratchA []byte
	scratchB []byte
}

func NewVersionLoader(opts Options) *VersionLoader {
	// Composite literal, not *NewLoader(opts): copying a Loader would
	// copy its mutex. The plan cache is built lazily by planFor.
	return &VersionLoader{Loader: Loader{Opts: opts}}
}

// Load loads src into out, upgrading older buffers through the
// conversion chain. It returns the buffer backing the record: src (or
// its extension) on a version match, one of the scratch buffers after a
// conversion. The record is valid while that buffer stays untouched.
func (v *VersionLoader) Load(src []byte, out any) ([]byte, error) {
	raw, slot, err := v.resolve(src, out)
	if err != nil {
		return nil, err
	}
	backed, err := v.Loader.LoadExtend(raw, out)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		*slot = backed
	}
	return backed, nil
}

// LoadCopy is the versioned counterpart of Loader.LoadCopy: the record
// always ends up backed by dst, even when a conversion chain ran first,
// and src is left untouched including its spare capacity.
func (v *VersionLoader) LoadCopy(dst, src []byte, out any, onlyExtend bool) ([]byte, error) {
	if v.needsUpgrade(src, out) {
		// The base hop of a chain extends its input in place; give it
		// a copy so src keeps both its bytes and its spare capacity.
		src = bytes.Clone(src)
	}
	raw, _, err := v.resolve(src, out)
	if err != nil {
		return nil, err
	}
	return v.Loader.LoadCopy(dst, raw, out, onlyExtend)
}

// Dump appends the versioned wire form of in: the version tag when in
// declares one, then the record body.
func (v *VersionLoader) Dump(in any, dst []byte) ([]byte, error) {
	if rec, ok := in.(Versioned); ok {
		dst = append(dst, rec.RecordVersion())
	}
	return v.Loader.Dump(in, dst)
}

// resolve returns raw bytes holding out's schema version, running the
// conversion chain when src was written by an older one. slot points at
// the scratch buffer holding raw, nil when raw is a view of src.
func (v *VersionLoader) resolve(src []byte, out any) (raw []byte, slot *[]byte, err error) {
	rec, ok := out.(Versioned)
	if !ok {
		return src, nil, nil
	}
	if len(src) == 0 {
		return nil, nil, fmt.Errorf("%w: missing version tag", ErrTooShort)
	}
	tag, want := src[0], rec.RecordVersion()
	switch {
	case tag == want:
		return src[1:], nil, nil
	case tag > want:
		return nil, nil, fmt.Errorf("%w: tag %d, newest known %d", ErrUnknownVersion, tag, want)
	}
	conv, ok := out.(Convertible)
	if !ok {
		return nil, nil, fmt.Errorf("%w: tag %d, no conversion from earlier versions", ErrUnknownVersion, tag)
	}
	prev := conv.NewPrevious()
	if prev == nil {
		return nil, nil, fmt.Errorf("%w: tag %d below oldest known version", ErrUnknownVersion, tag)
	}

	backing, err := v.Load(src, prev)
	if err != nil {
		return nil, nil, err
	}
	// Fields the converter does not set must come out as their zero
	// value, and a reused out must not carry stale views into Dump.
	if ov := reflect.ValueOf(out); ov.Kind() == reflect.Pointer && !ov.IsNil() {
		ov.Elem().SetZero()
	}
	conv.ConvertFrom(prev)

	// Serialize the converted record into whichever scratch buffer is
	// not backing prev; ConvertFrom may have aliased prev's views.
	slot = v.otherOf(backing)
	b, err := v.Loader.Dump(out, (*slot)[:0])
	if err != nil {
		return nil, nil, err
	}
	*slot = b
	return b, slot, nil
}

// needsUpgrade reports whether loading src into out would run a
// conversion chain.
func (v *VersionLoader) needsUpgrade(src []byte, out any) bool {
	rec, ok := out.(Versioned)
	if !ok || len(src) == 0 {
		return false
	}
	return src[0] < rec.RecordVersion()
}

// otherOf picks the scratch slot that does not share storage with cur.
func (v *VersionLoader) otherOf(cur []byte) *[]byte {
	if common.SameStorage(cur, v.scratchA) {
		return &v.scratchB
	}
	return &v.scratchA
}
