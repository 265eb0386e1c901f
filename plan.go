package flatrec

import (
	"fmt"
	"reflect"

	"github.com/rawbytedev/flatrec/internal/common"
)

type fieldClass uint8

const (
	classScalar fieldClass = iota
	classRecord
	classString
	classArray
)

type cellKind uint8

const (
	cellScalar cellKind = iota
	cellRecord
	cellString
	cellSlice
)

// cell describes the element type of an array field. dynamic marks
// elements that contain dynamic fields themselves; an array of dynamic
// cells is branched and needs placeholder storage at load time.
type cell struct {
	kind    cellKind
	typ     reflect.Type
	size    uintptr // in-memory size of one element
	align   uintptr
	rec     *plan // cellRecord
	inner   *cell // cellSlice
	dynamic bool
}

type fieldInfo struct {
	off   uintptr
	class fieldClass
	width int   // classScalar: wire byte width
	rec   *plan // classRecord
	cell  *cell // classArray
}

// plan is the cached static layout of a record type.
type plan struct {
	typ       reflect.Type
	fixedSize int  // wire bytes of the flattened scalar region
	dynamic   bool // carries at least one string or array field
	branched  bool // carries at least one branched array field
	fields    []fieldInfo
}

// planFor returns the cached plan for t, building it on first use.
func (l *Loader) planFor(t reflect.Type) (*plan, error) {
	l.mu.RLock()
	if p, ok := l.plans[t]; ok {
		l.mu.RUnlock()
		return p, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.plans[t]; ok {
		return p, nil
	}
	if l.plans == nil {
		l.plans = make(map[reflect.Type]*plan)
	}
	p, err := buildPlan(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	l.plans[t] = p
	return p, nil
}

func buildPlan(t reflect.Type, visiting map[reflect.Type]bool) (*plan, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupported, t)
	}
	if visiting[t] {
		return nil, fmt.Errorf("%w: recursive type %s", ErrUnsupported, t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	p := &plan{typ: t}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			// an unexported field would silently shift the wire layout
			return nil, fmt.Errorf("%w: unexported field %s.%s", ErrUnsupported, t, sf.Name)
		}
		f := fieldInfo{off: sf.Offset}
		switch k := sf.Type.Kind(); {
		case common.IsScalarKind(k):
			f.class = classScalar
			f.width = int(sf.Type.Size())
			p.fixedSize += f.width
		case k == reflect.Struct:
			sub, err := buildPlan(sf.Type, visiting)
			if err != nil {
				return nil, err
			}
			f.class = classRecord
			f.rec = sub
			p.fixedSize += sub.fixedSize
			p.dynamic = p.dynamic || sub.dynamic
			p.branched = p.branched || sub.branched
		case k == reflect.String:
			f.class = classString
			p.dynamic = true
		case k == reflect.Slice:
			c, err := buildCell(sf.Type.Elem(), visiting)
			if err != nil {
				return nil, err
			}
			f.class = classArray
			f.cell = c
			p.dynamic = true
			p.branched = p.branched || c.dynamic
		default:
			return nil, fmt.Errorf("%w: field %s.%s of kind %s", ErrUnsupported, t, sf.Name, k)
		}
		p.fields = append(p.fields, f)
	}
	return p, nil
}

func buildCell(t reflect.Type, visiting map[reflect.Type]bool) (*cell, error) {
	c := &cell{typ: t, size: t.Size(), align: uintptr(t.Align())}
	switch k := t.Kind(); {
	case common.IsScalarKind(k):
		c.kind = cellScalar
	case k == reflect.Struct:
		sub, err := buildPlan(t, visiting)
		if err != nil {
			return nil, err
		}
		c.kind = cellRecord
		c.rec = sub
		c.dynamic = sub.dynamic
	case k == reflect.String:
		c.kind = cellString
		c.dynamic = true
	case k == reflect.Slice:
		inner, err := buildCell(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}
		c.kind = cellSlice
		c.inner = inner
		c.dynamic = true
	default:
		return nil, fmt.Errorf("%w: array element kind %s", ErrUnsupported, k)
	}
	return c, nil
}
