/*
Package flatrec loads flat binary records back into typed Go structs
without copying data that does not need to move.

A record is a struct made of scalar fields, nested structs, strings and
slices. Its wire form is a fixed region holding every scalar field in
declaration order (nested structs flattened inline), followed by one
block per dynamic field: an 8-byte little-endian length prefix and the
payload. Value-element payloads (scalars, or structs that contain no
dynamic fields) are the raw in-memory bytes of the slice backing, so
loading them is a pointer/length assignment, not a copy. Arrays whose
element type itself contains a dynamic field ("branched" arrays) cannot
be aliased: their in-memory form is larger than their serialized form,
so placeholder storage is carved out of extra space appended to the
buffer (LoadExtend, LoadCopy) or out of a separate slices buffer
(LoadSlice).

Lifetime rules: a loaded record aliases the buffer the entry point
documents. The caller must keep that buffer alive and unmodified for as
long as the record is used; resizing or recycling it invalidates every
view. The package never retains a buffer beyond a call.

Versioning: a record type may implement Versioned to declare a one-byte
schema version, and Convertible to link it to its previous version. A
VersionLoader upgrades old buffers by loading them as the previous
version, running the type's ConvertFrom, re-serializing and loading the
result. A pair of alternating scratch buffers guarantees a conversion
hop never writes into the storage it is reading.

Instances are not safe for concurrent use; give each goroutine its own
Loader and buffers.
*/
package flatrec
