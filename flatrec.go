package flatrec

import (
	"errors"
	"reflect"
	"sync"
	"unsafe"
)

var (
	ErrNotStructPtr   = errors.New("expected pointer to struct")
	ErrUnsupported    = errors.New("unsupported type")
	ErrTooShort       = errors.New("buffer too short")
	ErrArrayTooLong   = errors.New("array length exceeds limit")
	ErrUnknownVersion = errors.New("unknown record version")
	ErrBranched       = errors.New("record has branched arrays")
	ErrUnaligned      = errors.New("payload not aligned for element type")
)

// DefaultMaxLen bounds array length prefixes when Options.MaxLen is zero.
const DefaultMaxLen = 1 << 30

type Options struct {
	MaxLen         uint64 // max accepted array length; 0 means DefaultMaxLen
	CheckAlignment bool   // verify element alignment of aliased views
}

// Loader patches serialized buffers into typed records. Per-type layout
// plans are cached on the instance.
type Loader struct {
	Opts  Options
	plans map[reflect.Type]*plan
	mu    sync.RWMutex
}

func NewLoader(opts Options) *Loader {
	return &Loader{
		Opts:  opts,
		plans: make(map[reflect.Type]*plan),
	}
}

func (l *Loader) maxLen() uint64 {
	if l.Opts.MaxLen == 0 {
		return DefaultMaxLen
	}
	return l.Opts.MaxLen
}

// recordOf resolves out into its layout plan and base pointer.
func (l *Loader) recordOf(out any) (*plan, unsafe.Pointer, error) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, nil, ErrNotStructPtr
	}
	p, err := l.planFor(v.Elem().Type())
	if err != nil {
		return nil, nil, err
	}
	return p, unsafe.Pointer(v.Pointer()), nil
}
