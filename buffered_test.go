package flatrec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferedLoaderReuse(t *testing.T) {
	b := NewBufferedLoader(Options{}, 64)
	l := NewLoader(Options{})

	big := Track{ID: 1, Name: "first message, long body", Marks: []int64{1, 2, 3, 4, 5, 6}}
	small := Track{ID: 2, Name: "x", Marks: []int64{7}}

	wireBig, err := l.Dump(&big, nil)
	require.NoError(t, err)
	wireSmall, err := l.Dump(&small, nil)
	require.NoError(t, err)

	var got Track
	require.NoError(t, b.LoadRaw(wireBig, &got))
	require.Equal(t, big, got)

	// A smaller record reuses the grown buffer; stale bytes from the
	// previous load must not show through.
	require.NoError(t, b.LoadRaw(wireSmall, &got))
	require.Equal(t, small.ID, got.ID)
	require.Equal(t, small.Name, got.Name)
	require.Equal(t, small.Marks, got.Marks)
}

func TestBufferedLoaderVersioned(t *testing.T) {
	b := NewBufferedLoader(Options{}, 32)
	wire, err := b.Dump(&chainV0{Data: []int64{2, 3}}, nil)
	require.NoError(t, err)

	var got chainV2
	require.NoError(t, b.Load(wire, &got))
	require.Equal(t, []int64{2, 3}, got.Data)
	require.Equal(t, int64(5), got.Sum)
	require.Equal(t, uint32(2), got.Count)
}

func TestBufferedLoaderBranched(t *testing.T) {
	b := NewBufferedLoader(Options{}, 16)
	l := NewLoader(Options{})
	rec := Outer{
		Label: "buffered",
		Items: []Inner{{ID: 4, Vals: []int64{40, 41}}},
		Tail:  1,
	}
	wire, err := l.Dump(&rec, nil)
	require.NoError(t, err)
	pristine := append([]byte(nil), wire...)

	var got Outer
	require.NoError(t, b.LoadRaw(wire, &got))
	require.Equal(t, pristine, wire)
	require.Equal(t, rec.Label, got.Label)
	require.Len(t, got.Items, 1)
	require.Equal(t, []int64{40, 41}, got.Items[0].Vals)
}

func TestBufferedLoaderClearAndMinimize(t *testing.T) {
	b := NewBufferedLoader(Options{}, 8)
	l := NewLoader(Options{})
	rec := Track{ID: 3, Name: "tenant data", Marks: []int64{9, 9, 9}}
	wire, err := l.Dump(&rec, nil)
	require.NoError(t, err)

	var got Track
	require.NoError(t, b.LoadRaw(wire, &got))
	require.NotZero(t, cap(b.buf))

	b.Clear()
	for _, c := range b.buf {
		require.Zero(t, c)
	}

	b.Minimize(16)
	require.LessOrEqual(t, cap(b.buf), 16)
	b.Minimize(-1)
	require.Zero(t, cap(b.buf))

	// Still usable after shrinking.
	require.NoError(t, b.LoadRaw(wire, &got))
	require.Equal(t, rec, got)
}
