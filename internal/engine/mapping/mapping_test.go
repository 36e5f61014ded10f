package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorRecoversDeletedContent(t *testing.T) {
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	reinsert := NewRangeMap(Span{Start: 5, NewSize: 5})

	mirrored := New(del, reinsert)
	mirrored.SetMirror(0, 1)
	plain := New(del, reinsert)

	for p := int64(5); p < 10; p++ {
		res := mirrored.MapResult(p, AssocAfter)
		assert.Falsef(t, res.Deleted, "pos %d", p)
		assert.Equalf(t, p, res.Pos, "pos %d", p)
		assert.Equalf(t, p, mirrored.Map(p, AssocAfter), "pos %d", p)

		assert.Truef(t, plain.MapResult(p, AssocAfter).Deleted, "pos %d without mirror", p)
	}
}

func TestMirrorUsingInvertedView(t *testing.T) {
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	m := New(del)
	m.AppendMapMirror(del.Invert(), 0)

	for p := int64(0); p < 20; p++ {
		res := m.MapResult(p, AssocAfter)
		assert.Equal(t, p, res.Pos)
		assert.False(t, res.Deleted)
	}
}

func TestMirrorJumpSkipsIntermediateMaps(t *testing.T) {
	// Rebase shape: undo a local insertion, apply a remote insertion at the
	// front, then redo the local insertion mapped past the remote one.
	local := NewRangeMap(Span{Start: 5, NewSize: 3})
	remote := NewRangeMap(Span{Start: 0, NewSize: 2})
	rebased := NewRangeMap(Span{Start: 7, NewSize: 3})

	m := New(local.Invert(), remote, rebased)
	m.SetMirror(0, 2)

	res := m.MapResult(7, AssocAfter)
	assert.Equal(t, int64(9), res.Pos)
	assert.False(t, res.Deleted)

	// The end boundary is not deleted; its recovery waits for the mirror.
	res = m.MapResult(8, AssocAfter)
	assert.Equal(t, int64(10), res.Pos)
	assert.False(t, res.Deleted)

	res = m.MapResult(2, AssocAfter)
	assert.Equal(t, int64(4), res.Pos)
	assert.False(t, res.Deleted)
}

func TestDeletedFlagIsSticky(t *testing.T) {
	front := NewRangeMap(Span{Start: 0, OldSize: 2})
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	m := New(front, del, del.Invert())
	m.SetMirror(1, 2)

	res := m.MapResult(1, AssocAfter)
	assert.True(t, res.Deleted)
	assert.Equal(t, int64(0), res.Pos)

	res = m.MapResult(8, AssocAfter)
	assert.False(t, res.Deleted)
	assert.Equal(t, int64(6), res.Pos)
}

func TestMirrorOutsideWindowIsIgnored(t *testing.T) {
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	m := New(del, del.Invert())
	m.SetMirror(0, 1)

	res := m.Slice(0, 1).MapResult(7, AssocAfter)
	assert.True(t, res.Deleted)
	assert.Equal(t, int64(5), res.Pos)
}

func TestAppendMappingInvertedReversesOrder(t *testing.T) {
	a := NewRangeMap(Span{Start: 2, OldSize: 3, NewSize: 1})
	b := NewRangeMap(Span{Start: 5, OldSize: 0, NewSize: 4}, Span{Start: 12, OldSize: 1, NewSize: 0})
	src := New(a, b)

	got := New()
	got.AppendMappingInverted(src)
	want := New(b.Invert(), a.Invert())

	require.Equal(t, 2, got.Len())
	for _, assoc := range []Assoc{AssocBefore, AssocAfter} {
		for p := int64(0); p < 25; p++ {
			assert.Equal(t, want.MapResult(p, assoc), got.MapResult(p, assoc))
			assert.Equal(t, want.Map(p, assoc), src.Invert().Map(p, assoc))
		}
	}
}

func TestSlicingComposes(t *testing.T) {
	m := New(
		NewRangeMap(Span{Start: 2, OldSize: 3, NewSize: 1}),
		NewRangeMap(Span{Start: 0, OldSize: 0, NewSize: 4}),
		NewRangeMap(Span{Start: 6, OldSize: 2, NewSize: 2}, Span{Start: 10, OldSize: 1, NewSize: 6}),
		Offset(-1),
	)
	n := m.Len()
	for k := 0; k <= n; k++ {
		for _, assoc := range []Assoc{AssocBefore, AssocAfter} {
			for p := int64(0); p < 20; p++ {
				split := m.Slice(k, n).Map(m.Slice(0, k).Map(p, assoc), assoc)
				assert.Equalf(t, m.Map(p, assoc), split, "split %d pos %d", k, p)
			}
		}
	}
}

func TestAppendMappingShiftsMirrors(t *testing.T) {
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	other := New(del, del.Invert())
	other.SetMirror(0, 1)

	m := New(Offset(3))
	m.AppendMapping(other)

	require.Equal(t, 3, m.Len())
	j, ok := m.GetMirror(1)
	require.True(t, ok)
	assert.Equal(t, 2, j)
	j, ok = m.GetMirror(2)
	require.True(t, ok)
	assert.Equal(t, 1, j)
	_, ok = m.GetMirror(0)
	assert.False(t, ok)

	res := m.MapResult(4, AssocAfter)
	assert.Equal(t, int64(7), res.Pos)
	assert.False(t, res.Deleted)
}

func TestAppendMappingUsesWindow(t *testing.T) {
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	other := New(Offset(10), del, del.Invert())
	other.SetMirror(1, 2)

	m := New()
	m.AppendMapping(other.SliceFrom(1))
	require.Equal(t, 2, m.Len())
	assert.Equal(t, [][2]int{{0, 1}}, m.Mirrors())

	inv := New()
	inv.AppendMappingInverted(other.Slice(0, 2))
	require.Equal(t, 2, inv.Len())
	assert.Empty(t, inv.Mirrors())
	// The map at index 2 lies outside the window and is not appended.
	assert.Equal(t, int64(7), inv.Map(12, AssocAfter))
}

func TestAppendMappingInvertedReflectsMirrors(t *testing.T) {
	a := NewRangeMap(Span{Start: 5, OldSize: 5})
	b := NewRangeMap(Span{Start: 0, NewSize: 1})
	src := New(a, b, a.Invert())
	src.SetMirror(0, 2)

	inv := New()
	inv.AppendMappingInverted(src)
	assert.Equal(t, [][2]int{{0, 2}}, inv.Mirrors())
	assert.True(t, inv.Maps()[2].Inverted())
	assert.False(t, inv.Maps()[0].Inverted())
}

func TestInvertRoundTripsWithMirrors(t *testing.T) {
	del := NewRangeMap(Span{Start: 5, OldSize: 5})
	m := New(del, del.Invert())
	m.SetMirror(0, 1)

	inv := m.Invert()
	for p := int64(0); p < 15; p++ {
		res := inv.MapResult(p, AssocAfter)
		assert.Equal(t, p, res.Pos)
		assert.False(t, res.Deleted)
	}
}

func TestInvertMapsBack(t *testing.T) {
	m := New(
		NewRangeMap(Span{Start: 3, OldSize: 0, NewSize: 2}),
		NewRangeMap(Span{Start: 10, OldSize: 4, NewSize: 1}),
	)
	inv := m.Invert()
	for _, p := range []int64{0, 2, 5, 20, 30} {
		res := m.MapResult(p, AssocAfter)
		require.False(t, res.Deleted)
		assert.Equal(t, p, inv.Map(res.Pos, AssocAfter))
	}
}

func TestSliceDefaultsAndClamping(t *testing.T) {
	m := New(Offset(1), Offset(2), Offset(3))
	s := m.Slice(-4, 99)
	assert.Equal(t, 0, s.From())
	assert.Equal(t, 3, s.To())
	assert.Equal(t, int64(6), s.Map(0, AssocAfter))

	s = m.Slice(2, 1)
	assert.Equal(t, 1, s.From())
	assert.Equal(t, int64(5), s.Map(5, AssocAfter))

	assert.Equal(t, int64(5), m.SliceFrom(1).Map(0, AssocAfter))
}

func TestSliceAppendDoesNotTouchOriginal(t *testing.T) {
	m := New(Offset(1), Offset(2))
	view := m.Slice(0, 1)
	view.AppendMap(Offset(10))
	view.SetMirror(0, 1)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, int64(3), m.Map(0, AssocAfter))
	_, ok := m.GetMirror(0)
	assert.False(t, ok)

	assert.Equal(t, 3, view.Len())
	assert.Equal(t, 3, view.To())
}

func TestCopyIsIndependent(t *testing.T) {
	m := New(Offset(1))
	m.SetMirror(0, 0)
	c := m.Copy()
	c.AppendMap(Offset(5))
	c.SetMirror(0, 1)

	assert.Equal(t, 1, m.Len())
	j, ok := m.GetMirror(0)
	require.True(t, ok)
	assert.Equal(t, 0, j)
	assert.Equal(t, 2, c.Len())
}

func TestSetMirrorReplacesPartner(t *testing.T) {
	m := New(Offset(1), Offset(-1), Offset(1))
	m.SetMirror(0, 1)
	m.SetMirror(1, 2)

	_, ok := m.GetMirror(0)
	assert.False(t, ok)
	j, _ := m.GetMirror(1)
	assert.Equal(t, 2, j)
	assert.Equal(t, [][2]int{{1, 2}}, m.Mirrors())
}

func TestNewWithMirrors(t *testing.T) {
	del := NewRangeMap(Span{Start: 0, OldSize: 4})
	m := NewWithMirrors([]*RangeMap{del, del.Invert()}, [][2]int{{0, 1}})
	res := m.MapResult(2, AssocBefore)
	assert.Equal(t, int64(2), res.Pos)
	assert.False(t, res.Deleted)
}

func TestMappingString(t *testing.T) {
	m := New(Offset(2), Offset(2).Invert())
	m.SetMirror(0, 1)
	assert.Equal(t, "Mapping[0:2]{[0,0,2] -[0,0,2]} mirrors=[[0 1]]", m.String())
}
