package multiblock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

func TestBuildOversizeRejected(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()

	_, err := Build(reg, grid, testWorld, slab, PatternRange{Anchor: v(0, 0, 0), Width: 11, Height: 1, Depth: 1})
	require.ErrorIs(t, err, ErrSizeExceeded)
	assert.Equal(t, 0, reg.Count(testWorld))
	assert.False(t, reg.IsOccupied(testWorld, v(0, 0, 0)))

	_, err = Build(reg, grid, testWorld, slab, PatternRange{Anchor: v(0, 0, 0), Width: 0, Height: 1, Depth: 1})
	require.ErrorIs(t, err, ErrInvalidDimensions)

	s, err := Build(reg, grid, testWorld, slab, mustRange(t, v(0, 0, 0), MaxAxis, MaxAxis, MaxAxis))
	require.NoError(t, err)
	vol, err := s.Volume()
	require.NoError(t, err)
	assert.Equal(t, MaxVolume, vol)
}

func TestStructureDisposeIsTerminal(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	s := mustBuild(t, reg, grid, slab, mustRange(t, v(0, 0, 0), 2, 1, 1))

	s.Dispose()
	s.Dispose()

	assert.True(t, s.IsDisposed())
	assert.Nil(t, reg.FindByPosition(testWorld, v(0, 0, 0)))

	_, err := s.Range()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, err = s.Anchor()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, err = s.Record()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, err = s.CheckAndSplitIntegrity()
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	_, _, err = s.SplitAlongPlane(vec.AxisX, 1)
	assert.ErrorIs(t, err, ErrUseAfterDispose)
	assert.False(t, s.CheckIntegrity())
	assert.False(t, s.Contains(v(0, 0, 0)))
}

func TestStructureCheckIntegrity(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 3, 1, 1)
	grid.fill(testWorld, rng, slab)

	s := mustBuild(t, reg, grid, slab, rng)
	assert.True(t, s.CheckIntegrity())

	grid.set(testWorld, v(1, 0, 0), marble)
	assert.False(t, s.CheckIntegrity())
	assert.False(t, s.IsDisposed(), "integrity check never mutates")
}

func TestStructureRecord(t *testing.T) {
	reg := NewRegistry()
	s := mustBuild(t, reg, newFakeGrid(), slab, mustRange(t, v(1, 2, 3), 2, 1, 4))

	rec, err := s.Record()
	require.NoError(t, err)
	assert.Equal(t, StructureRecord{
		Anchor:     v(1, 2, 3),
		CellTypeID: "foodcraft:heat_resistant_slab",
		RangeStart: v(1, 2, 3),
		Width:      2,
		Height:     1,
		Depth:      4,
	}, rec)
}

func TestWithTemporaryStructure(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 2, 2, 2)

	t.Run("disposes after success", func(t *testing.T) {
		var seen *Structure
		err := WithTemporaryStructure(reg, grid, testWorld, slab, rng, func(s *Structure) error {
			seen = s
			assert.True(t, reg.IsOccupied(testWorld, v(1, 1, 1)))
			return nil
		})
		require.NoError(t, err)
		assert.True(t, seen.IsDisposed())
		assert.False(t, reg.IsOccupied(testWorld, v(1, 1, 1)))
	})

	t.Run("disposes on error", func(t *testing.T) {
		boom := errors.New("boom")
		var seen *Structure
		err := WithTemporaryStructure(reg, grid, testWorld, slab, rng, func(s *Structure) error {
			seen = s
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.True(t, seen.IsDisposed())
		assert.Equal(t, 0, reg.Count(testWorld))
	})

	t.Run("disposes on panic", func(t *testing.T) {
		var seen *Structure
		assert.Panics(t, func() {
			_ = WithTemporaryStructure(reg, grid, testWorld, slab, rng, func(s *Structure) error {
				seen = s
				panic("boom")
			})
		})
		assert.True(t, seen.IsDisposed())
		assert.Equal(t, 0, reg.Count(testWorld))
	})

	t.Run("build failure skips fn", func(t *testing.T) {
		called := false
		err := WithTemporaryStructure(reg, grid, testWorld, slab, rng.WithSize(vec.AxisX, 11), func(*Structure) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, ErrSizeExceeded)
		assert.False(t, called)
	})
}
