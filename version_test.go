package flatrec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recV0 struct {
	A int64
}

func (recV0) RecordVersion() byte { return 0 }

type recV1 struct {
	A int64
	B int64
}

func (recV1) RecordVersion() byte { return 1 }
func (recV1) NewPrevious() any    { return new(recV0) }
func (r *recV1) ConvertFrom(prev any) {
	p := prev.(*recV0)
	r.A = p.A
	r.B = p.A + 5
}

type recV2 struct {
	A int64
	B int64
	C int64
}

func (recV2) RecordVersion() byte { return 2 }
func (recV2) NewPrevious() any    { return new(recV1) }
func (r *recV2) ConvertFrom(prev any) {
	p := prev.(*recV1)
	r.A = p.A
	r.B = p.B
	r.C = p.B + 1
}

func TestVersionChainUpgrade(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&recV0{A: 10}, nil)
	require.NoError(t, err)
	require.Equal(t, byte(0), wire[0])

	var got recV2
	_, err = vl.Load(wire, &got)
	require.NoError(t, err)
	require.Equal(t, recV2{A: 10, B: 15, C: 16}, got)

	// One hop only.
	var mid recV1
	_, err = vl.Load(wire, &mid)
	require.NoError(t, err)
	require.Equal(t, recV1{A: 10, B: 15}, mid)
}

func TestVersionMatchPassthrough(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&recV2{A: 1, B: 2, C: 3}, nil)
	require.NoError(t, err)
	require.Equal(t, byte(2), wire[0])

	var got recV2
	backed, err := vl.Load(wire, &got)
	require.NoError(t, err)
	require.Equal(t, recV2{A: 1, B: 2, C: 3}, got)
	// No conversion ran, so the record is backed by the source buffer.
	require.Equal(t, wire[1:], backed)
}

func TestVersionUnknownTag(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&recV2{A: 4}, nil)
	require.NoError(t, err)

	// A newer tag than the type knows about must be refused.
	var old recV1
	_, err = vl.Load(wire, &old)
	require.ErrorIs(t, err, ErrUnknownVersion)

	wire[0] = 9
	var got recV2
	_, err = vl.Load(wire, &got)
	require.ErrorIs(t, err, ErrUnknownVersion)
}

type soloV1 struct {
	A int64
}

func (soloV1) RecordVersion() byte { return 1 }

func TestVersionNoConversionPath(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&recV0{A: 3}, nil)
	require.NoError(t, err)

	var got soloV1
	_, err = vl.Load(wire, &got)
	require.ErrorIs(t, err, ErrUnknownVersion)
}

func TestVersionMissingTag(t *testing.T) {
	vl := NewVersionLoader(Options{})
	var got recV1
	_, err := vl.Load(nil, &got)
	require.ErrorIs(t, err, ErrTooShort)
}

func TestVersionUnversionedPassthrough(t *testing.T) {
	vl := NewVersionLoader(Options{})
	rec := Track{ID: 8, Name: "plain", Marks: []int64{1, 2}}
	wire, err := vl.Dump(&rec, nil)
	require.NoError(t, err)

	// No Versioned implementation, so no tag and no chain.
	var got Track
	_, err = vl.Load(wire, &got)
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

type noteV0 struct {
	A int64
}

func (noteV0) RecordVersion() byte { return 0 }

type noteV1 struct {
	A int64
	B int64
}

func (noteV1) RecordVersion() byte { return 1 }
func (noteV1) NewPrevious() any    { return new(noteV0) }

// Deliberately leaves B alone.
func (r *noteV1) ConvertFrom(prev any) {
	r.A = prev.(*noteV0).A
}

func TestVersionConvertUnsetFieldsAreZero(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&noteV0{A: 10}, nil)
	require.NoError(t, err)

	// A reused destination must not leak values the converter never set.
	got := noteV1{A: 1, B: 99}
	_, err = vl.Load(wire, &got)
	require.NoError(t, err)
	require.Equal(t, noteV1{A: 10, B: 0}, got)

	dst, err := vl.LoadCopy(nil, wire, &got, false)
	require.NoError(t, err)
	require.Equal(t, noteV1{A: 10, B: 0}, got)
	require.NotNil(t, dst)
}

func TestVersionConvertReusedViewsCleared(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&chainV0{Data: []int64{1, 2}}, nil)
	require.NoError(t, err)

	// The stale view in out aliases scratch storage from the first
	// upgrade; the second upgrade must not read it while re-serializing.
	var got chainV2
	_, err = vl.Load(wire, &got)
	require.NoError(t, err)
	_, err = vl.Load(wire, &got)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, got.Data)
	require.Equal(t, int64(3), got.Sum)
	require.Equal(t, uint32(2), got.Count)
}

type chainV0 struct {
	Data []int64
}

func (chainV0) RecordVersion() byte { return 0 }

type chainV1 struct {
	Data []int64
	Sum  int64
}

func (chainV1) RecordVersion() byte { return 1 }
func (chainV1) NewPrevious() any    { return new(chainV0) }
func (r *chainV1) ConvertFrom(prev any) {
	p := prev.(*chainV0)
	r.Data = p.Data
	for _, v := range p.Data {
		r.Sum += v
	}
}

type chainV2 struct {
	Data  []int64
	Sum   int64
	Count uint32
}

func (chainV2) RecordVersion() byte { return 2 }
func (chainV2) NewPrevious() any    { return new(chainV1) }
func (r *chainV2) ConvertFrom(prev any) {
	p := prev.(*chainV1)
	r.Data = p.Data
	r.Sum = p.Sum
	r.Count = uint32(len(p.Data))
}

// Two hops where every intermediate record carries array views, so each
// hop must serialize into the scratch buffer not backing its input.
func TestVersionChainWithArrays(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&chainV0{Data: []int64{3, 4, 5}}, nil)
	require.NoError(t, err)

	var got chainV2
	_, err = vl.Load(wire, &got)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 4, 5}, got.Data)
	require.Equal(t, int64(12), got.Sum)
	require.Equal(t, uint32(3), got.Count)

	// The same loader must handle repeat upgrades with its scratch pair.
	for i := 0; i < 4; i++ {
		var again chainV2
		_, err = vl.Load(wire, &again)
		require.NoError(t, err)
		require.Equal(t, got, again)
	}
}

type packV0 struct {
	Items []Inner
}

func (packV0) RecordVersion() byte { return 0 }

type packV1 struct {
	Items []Inner
	N     uint32
}

func (packV1) RecordVersion() byte { return 1 }
func (packV1) NewPrevious() any    { return new(packV0) }
func (r *packV1) ConvertFrom(prev any) {
	p := prev.(*packV0)
	r.Items = p.Items
	r.N = uint32(len(p.Items))
}

// An upgrade of a branched record must not write into src's spare
// capacity, which may belong to adjacent data in a larger buffer.
func TestVersionLoadCopyKeepsSourceCapacity(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&packV0{Items: []Inner{{ID: 1, Vals: []int64{2, 3}}}}, nil)
	require.NoError(t, err)

	big := make([]byte, len(wire)+64)
	copy(big, wire)
	for i := len(wire); i < len(big); i++ {
		big[i] = 0xAA
	}
	src := big[:len(wire)]

	var got packV1
	_, err = vl.LoadCopy(nil, src, &got, false)
	require.NoError(t, err)
	require.Equal(t, wire, src)
	for i := len(wire); i < len(big); i++ {
		require.Equal(t, byte(0xAA), big[i], "spare capacity byte %d", i)
	}

	require.Len(t, got.Items, 1)
	require.Equal(t, uint32(1), got.Items[0].ID)
	require.Equal(t, []int64{2, 3}, got.Items[0].Vals)
	require.Equal(t, uint32(1), got.N)
}

func TestVersionLoadCopy(t *testing.T) {
	vl := NewVersionLoader(Options{})
	wire, err := vl.Dump(&chainV0{Data: []int64{7, 8}}, nil)
	require.NoError(t, err)

	var got chainV2
	dst, err := vl.LoadCopy(nil, wire, &got, false)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 8}, got.Data)
	require.Equal(t, int64(15), got.Sum)
	require.Equal(t, uint32(2), got.Count)

	// The record must be backed by dst, not the scratch pair: wiping the
	// scratch buffers via a fresh upgrade must not disturb it.
	var other chainV2
	_, err = vl.Load(wire, &other)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 8}, got.Data)
	require.NotNil(t, dst)
}
