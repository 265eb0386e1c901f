package common

import (
	"encoding/binary"
	"reflect"
	"unsafe"
)

// LenSize is the width of an array length prefix on the wire.
const LenSize = 8

// IsScalarKind reports whether k is a fixed-size primitive kind.
func IsScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Align8 rounds n up to the next multiple of 8.
func Align8(n int) int {
	return (n + 7) &^ 7
}

// AppendLen appends an 8-byte little-endian length prefix to dst.
func AppendLen(dst []byte, n uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, n)
}

// ReadLen decodes a length prefix at off. ok is false when the buffer
// is too short to hold the prefix.
func ReadLen(b []byte, off int) (n uint64, ok bool) {
	if off+LenSize > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[off:]), true
}

// BytesOf aliases n bytes of memory starting at p.
func BytesOf(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}

// sliceWords mirrors the runtime slice header layout.
type sliceWords struct {
	data unsafe.Pointer
	len  int
	cap  int
}

type stringWords struct {
	data unsafe.Pointer
	len  int
}

// SetSlice writes a slice header of n elements backed by data into the
// field at ptr. data may be nil when n is zero.
func SetSlice(ptr unsafe.Pointer, data unsafe.Pointer, n int) {
	h := (*sliceWords)(ptr)
	h.data = data
	h.len = n
	h.cap = n
}

// SetString writes a string header of n bytes backed by data into the
// field at ptr.
func SetString(ptr unsafe.Pointer, data unsafe.Pointer, n int) {
	h := (*stringWords)(ptr)
	h.data = data
	h.len = n
}

// SliceData returns the backing pointer and element count of the slice
// field at ptr.
func SliceData(ptr unsafe.Pointer) (unsafe.Pointer, int) {
	h := (*sliceWords)(ptr)
	return h.data, h.len
}

// StringData returns the backing pointer and byte count of the string
// field at ptr.
func StringData(ptr unsafe.Pointer) (unsafe.Pointer, int) {
	h := (*stringWords)(ptr)
	return h.data, h.len
}

// SameStorage reports whether a and b share a backing array. Both must
// have non-zero capacity for a meaningful answer.
func SameStorage(a, b []byte) bool {
	if cap(a) == 0 || cap(b) == 0 {
		return false
	}
	return &a[:1][0] == &b[:1][0]
}
