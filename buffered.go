package flatrec

// BufferedLoader keeps one persistent destination buffer so repeated
// loads of the same record type reuse memory instead of allocating.
// Use one instance per record type; the versioned scratch pair lives on
// the embedded VersionLoader.
type BufferedLoader struct {
	VersionLoader
	buf []byte
}

// NewBufferedLoader pre-sizes the destination buffer to sizeHint bytes,
// typically the record type's fixed region size or an expected message
// size.
func NewBufferedLoader(opts Options, sizeHint int) *BufferedLoader {
	return &BufferedLoader{
		VersionLoader: VersionLoader{Loader: Loader{Opts: opts}},
		buf:           make([]byte, 0, sizeHint),
	}
}

// Load decodes src into out through the version layer, backing the
// record with the loader's own buffer. The record is valid until the
// next Load/LoadRaw/Clear/Minimize call on this instance.
func (b *BufferedLoader) Load(src []byte, out any) error {
	nb, err := b.VersionLoader.LoadCopy(b.buf, src, out, true)
	if err != nil {
		return err
	}
	b.buf = nb
	return nil
}

// LoadRaw decodes an unversioned buffer, bypassing the version layer.
func (b *BufferedLoader) LoadRaw(src []byte, out any) error {
	nb, err := b.Loader.LoadCopy(b.buf, src, out, true)
	if err != nil {
		return err
	}
	b.buf = nb
	return nil
}

// Clear zero-fills the destination buffer without shrinking it.
// Outstanding records loaded through this instance are invalidated.
func (b *BufferedLoader) Clear() {
	clear(b.buf)
}

// Minimize releases the destination buffer down to bytesReserved bytes
// of capacity, trading memory back for allocation avoidance.
func (b *BufferedLoader) Minimize(bytesReserved int) {
	if bytesReserved < 0 {
		bytesReserved = 0
	}
	if cap(b.buf) <= bytesReserved {
		return
	}
	b.buf = make([]byte, 0, bytesReserved)
}
