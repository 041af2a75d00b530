package multiblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

func TestCheckAndSplitIntegrityIntact(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 3, 2, 2)
	grid.fill(testWorld, rng, slab)
	s := mustBuild(t, reg, grid, slab, rng)

	fragments, err := s.CheckAndSplitIntegrity()
	require.NoError(t, err)
	assert.Empty(t, fragments)
	assert.False(t, s.IsDisposed())

	got, err := s.Range()
	require.NoError(t, err)
	assert.Equal(t, rng, got)
}

func TestCheckAndSplitIntegrityMiddleRemoved(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 3, 1, 1)
	grid.fill(testWorld, rng, slab)
	s := mustBuild(t, reg, grid, slab, rng)

	grid.set(testWorld, v(1, 0, 0), 0)

	fragments, err := s.CheckAndSplitIntegrity()
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.True(t, s.IsDisposed())
	assert.Equal(t, SingleCell(v(0, 0, 0)), fragments[0].rng)
	assert.Equal(t, SingleCell(v(2, 0, 0)), fragments[1].rng)
	requireNoOverlap(t, reg, testWorld)
}

func TestCheckAndSplitIntegrityVanishes(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	s := mustBuild(t, reg, grid, slab, mustRange(t, v(0, 0, 0), 2, 2, 1))

	fragments, err := s.CheckAndSplitIntegrity()
	require.NoError(t, err)
	assert.Empty(t, fragments)
	assert.True(t, s.IsDisposed())
	assert.Equal(t, 0, reg.Count(testWorld))
}

func TestCheckAndSplitIntegrityCompleteness(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 4, 3, 2)
	grid.fill(testWorld, rng, slab)
	s := mustBuild(t, reg, grid, slab, rng)

	// вырезаем плоскость x=2 и одну ячейку в углу
	for y := 0; y < 3; y++ {
		for z := 0; z < 2; z++ {
			grid.set(testWorld, v(2, y, z), 0)
		}
	}
	grid.set(testWorld, v(3, 2, 1), marble)

	var valid []vec.Vec3
	rng.ForEach(func(p vec.Vec3) bool {
		if grid.CellTypeAt(testWorld, p) == slab {
			valid = append(valid, p)
		}
		return true
	})

	fragments, err := s.CheckAndSplitIntegrity()
	require.NoError(t, err)
	require.Len(t, fragments, 2)

	covered := make(map[vec.Vec3]int)
	for _, f := range fragments {
		f.rng.ForEach(func(p vec.Vec3) bool {
			if grid.CellTypeAt(testWorld, p) == slab {
				covered[p]++
			}
			return true
		})
	}
	assert.Len(t, covered, len(valid))
	for _, p := range valid {
		assert.Equal(t, 1, covered[p], "cell %s", p)
	}
}

func TestCheckAndSplitIntegrityHoleWarnsAndProceeds(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 2, 2, 1)
	grid.fill(testWorld, rng, slab)
	s := mustBuild(t, reg, grid, slab, rng)

	// L-образный компонент: ограничивающий параллелепипед 2x2 с дыркой
	grid.set(testWorld, v(1, 1, 0), 0)

	fragments, err := s.CheckAndSplitIntegrity()
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, rng, fragments[0].rng)
	assert.False(t, fragments[0].CheckIntegrity())
}

func TestCheckAndSplitIntegrityHoledFragmentSharesAnchor(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 3, 1, 3)
	grid.fill(testWorld, rng, slab)
	s := mustBuild(t, reg, grid, slab, rng)

	// угол (0,0,0) отрезан от L-образного остатка, чей параллелепипед
	// начинается в том же углу
	grid.set(testWorld, v(1, 0, 0), 0)
	grid.set(testWorld, v(0, 0, 1), 0)
	grid.set(testWorld, v(1, 0, 1), 0)

	fragments, err := s.CheckAndSplitIntegrity()
	require.NoError(t, err)
	assert.True(t, s.IsDisposed())

	ranges := make([]PatternRange, len(fragments))
	for i, f := range fragments {
		ranges[i] = f.rng
		assert.True(t, f.CheckIntegrity(), "fragment %s", f.rng)
	}
	assert.ElementsMatch(t, []PatternRange{
		SingleCell(v(0, 0, 0)),
		mustRange(t, v(2, 0, 0), 1, 1, 3),
		mustRange(t, v(0, 0, 2), 2, 1, 1),
	}, ranges)

	covered := make(map[vec.Vec3]int)
	for _, r := range ranges {
		r.ForEach(func(p vec.Vec3) bool {
			covered[p]++
			return true
		})
	}
	rng.ForEach(func(p vec.Vec3) bool {
		if grid.CellTypeAt(testWorld, p) == slab {
			assert.Equal(t, 1, covered[p], "valid cell %s", p)
		} else {
			assert.Zero(t, covered[p], "empty cell %s", p)
		}
		return true
	})
	assert.Equal(t, 3, reg.Count(testWorld))
	requireNoOverlap(t, reg, testWorld)
}

func TestSolidBoxesCoverCells(t *testing.T) {
	cells := map[vec.Vec3]struct{}{}
	var order []vec.Vec3
	mustRange(t, v(0, 0, 0), 3, 2, 2).ForEach(func(p vec.Vec3) bool {
		if p != v(2, 1, 1) {
			cells[p] = struct{}{}
			order = append(order, p)
		}
		return true
	})

	boxes := solidBoxes(order, cells)
	total := 0
	for i, b := range boxes {
		total += b.Volume()
		for _, o := range boxes[i+1:] {
			assert.False(t, b.Intersects(o), "%s overlaps %s", b, o)
		}
		b.ForEach(func(p vec.Vec3) bool {
			assert.Contains(t, cells, p)
			return true
		})
	}
	assert.Equal(t, len(cells), total)
	assert.Equal(t, mustRange(t, v(0, 0, 0), 3, 2, 1), boxes[0])
}

func TestSplitAlongPlane(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	rng := mustRange(t, v(0, 0, 0), 4, 2, 3)
	s := mustBuild(t, reg, grid, slab, rng)

	a, b, err := s.SplitAlongPlane(vec.AxisZ, 1)
	require.NoError(t, err)
	assert.True(t, s.IsDisposed())
	assert.Equal(t, mustRange(t, v(0, 0, 0), 4, 2, 1), a.rng)
	assert.Equal(t, mustRange(t, v(0, 0, 1), 4, 2, 2), b.rng)
	assert.Equal(t, 2, reg.Count(testWorld))
	requireNoOverlap(t, reg, testWorld)
}

func TestSplitAlongPlaneOutOfRange(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	s := mustBuild(t, reg, grid, slab, mustRange(t, v(0, 0, 0), 3, 1, 1))

	for _, pos := range []int{-1, 0, 3, 7} {
		a, b, err := s.SplitAlongPlane(vec.AxisX, pos)
		assert.ErrorIs(t, err, ErrInvalidSplit)
		assert.Nil(t, a)
		assert.Nil(t, b)
	}
	_, _, err := s.SplitAlongPlane(vec.AxisY, 1)
	assert.ErrorIs(t, err, ErrInvalidSplit)
	assert.False(t, s.IsDisposed())
}
