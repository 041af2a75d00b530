package multiblock

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveReferenceAccessors(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(10, 0, -4), 3, 2, 2)
	grid.fill(testWorld, rng, slab)
	s := mustBuild(t, reg, grid, slab, rng)

	ref, err := NewLiveReference(s, v(2, 1, 0))
	require.NoError(t, err)

	pos, err := ref.WorldPosition()
	require.NoError(t, err)
	assert.Equal(t, v(12, 1, -4), pos)

	master, err := ref.MasterWorldPosition()
	require.NoError(t, err)
	assert.Equal(t, v(10, 0, -4), master)

	vol, err := ref.Volume()
	require.NoError(t, err)
	assert.Equal(t, 12, vol)

	w, h, d, err := ref.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 2}, [3]int{w, h, d})

	assert.True(t, ref.MatchesCellType(slab))
	assert.False(t, ref.MatchesCellType(marble))
	assert.False(t, ref.IsMasterCell())
	assert.True(t, ref.ContainsWorldPosition(v(11, 1, -3)))
	assert.True(t, ref.CheckIntegrity())

	masterRef, err := NewLiveReferenceAt(s, v(10, 0, -4))
	require.NoError(t, err)
	assert.True(t, masterRef.IsMasterCell())
}

func TestReferenceInvalidRelativePosition(t *testing.T) {
	reg := NewRegistry()
	s := mustBuild(t, reg, newFakeGrid(), slab, mustRange(t, v(0, 0, 0), 2, 2, 2))

	for _, rel := range []struct{ x, y, z int }{{2, 0, 0}, {0, -1, 0}, {0, 0, 2}} {
		_, err := NewLiveReference(s, v(rel.x, rel.y, rel.z))
		assert.ErrorIs(t, err, ErrInvalidRelativePosition)
	}

	_, err := NewDetachedReference(v(0, 0, 0), v(3, 0, 0), slab, 3, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidRelativePosition)
	_, err = NewDetachedReference(v(0, 0, 0), v(0, 0, 0), slab, 0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestLiveReferenceUseAfterDispose(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	s := mustBuild(t, reg, grid, slab, mustRange(t, v(0, 0, 0), 2, 1, 1))

	ref, err := NewLiveReference(s, v(1, 0, 0))
	require.NoError(t, err)

	s.Dispose()

	assert.True(t, ref.IsDisposed())
	_, err = ref.WorldPosition()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, err = ref.BaseCellType()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, _, _, err = ref.Dimensions()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, err = ref.Record()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, err = Detach(ref)
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	assert.False(t, ref.MatchesCellType(slab))
	assert.False(t, ref.CheckIntegrity())

	_, err = NewLiveReference(s, v(0, 0, 0))
	assert.ErrorIs(t, err, ErrUseAfterDispose)
}

func TestLiveReferenceOwnDispose(t *testing.T) {
	reg := NewRegistry()
	s := mustBuild(t, reg, newFakeGrid(), slab, SingleCell(v(0, 0, 0)))

	ref, err := NewLiveReference(s, v(0, 0, 0))
	require.NoError(t, err)
	ref.Dispose()

	assert.True(t, ref.IsDisposed())
	assert.False(t, s.IsDisposed(), "disposing a reference leaves its structure alive")
	_, err = ref.RelativePosition()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
}

func TestDetachedReferenceRoundTrip(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	s := mustBuild(t, reg, grid, marble, mustRange(t, v(-3, 64, 7), 4, 1, 3))

	live, err := NewLiveReference(s, v(3, 0, 2))
	require.NoError(t, err)
	detached, err := Detach(live)
	require.NoError(t, err)

	rec, err := detached.Record()
	require.NoError(t, err)
	assert.Equal(t, ReferenceRecord{
		MasterPosition:   v(-3, 64, 7),
		RelativePosition: v(3, 0, 2),
		BaseCellTypeID:   "foodcraft:marble_slab",
		StructureWidth:   4,
		StructureHeight:  1,
		StructureDepth:   3,
	}, rec)

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		var back ReferenceRecord
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, rec, back)
	})

	t.Run("binary", func(t *testing.T) {
		data, err := rec.MarshalBinary()
		require.NoError(t, err)
		back, err := UnmarshalReferenceRecord(data)
		require.NoError(t, err)
		assert.Equal(t, rec, back)
	})

	t.Run("detached from record", func(t *testing.T) {
		again, err := DetachedFromRecord(rec)
		require.NoError(t, err)
		again2, err := again.Record()
		require.NoError(t, err)
		assert.Equal(t, rec, again2)

		pos, err := again.WorldPosition()
		require.NoError(t, err)
		assert.Equal(t, v(0, 64, 9), pos)
		assert.True(t, again.MatchesCellType(marble))
	})

	// снимок переживает исходную структуру
	s.Dispose()
	assert.False(t, detached.IsDisposed())
	assert.True(t, detached.CheckIntegrity())
	vol, err := detached.Volume()
	require.NoError(t, err)
	assert.Equal(t, 12, vol)
}

func TestDetachedFromRecordUnknownType(t *testing.T) {
	_, err := DetachedFromRecord(ReferenceRecord{
		BaseCellTypeID:  "foodcraft:unobtainium",
		StructureWidth:  1,
		StructureHeight: 1,
		StructureDepth:  1,
	})
	assert.ErrorIs(t, err, ErrUnknownCellType)
}

func TestUnmarshalReferenceRecordRejectsGarbage(t *testing.T) {
	_, err := UnmarshalReferenceRecord([]byte{0x0a, 0xff})
	assert.Error(t, err)
}

func TestResolveLive(t *testing.T) {
	reg := NewRegistry()
	s := mustBuild(t, reg, newFakeGrid(), slab, mustRange(t, v(0, 0, 0), 2, 2, 1))

	live, err := NewLiveReference(s, v(1, 1, 0))
	require.NoError(t, err)
	rec, err := live.Record()
	require.NoError(t, err)

	resolved, err := ResolveLive(reg, testWorld, rec)
	require.NoError(t, err)
	got, err := resolved.Structure()
	require.NoError(t, err)
	assert.Same(t, s, got)

	s.Dispose()
	_, err = ResolveLive(reg, testWorld, rec)
	assert.ErrorIs(t, err, ErrUseAfterDispose)
}

func TestHasValidStructure(t *testing.T) {
	reg := NewRegistry()
	s := mustBuild(t, reg, newFakeGrid(), slab, mustRange(t, v(0, 0, 0), 2, 1, 1))

	owner := &testOwner{OwnerBase: NewOwnerBase(v(1, 0, 0))}
	assert.False(t, owner.HasValidStructure())

	wrong, err := NewLiveReference(s, v(0, 0, 0))
	require.NoError(t, err)
	owner.SetReference(wrong)
	assert.False(t, owner.HasValidStructure(), "reference must point at the owner cell")

	right, err := NewLiveReference(s, v(1, 0, 0))
	require.NoError(t, err)
	owner.SetReference(right)
	assert.True(t, owner.HasValidStructure())

	s.Dispose()
	assert.False(t, owner.HasValidStructure())
}
