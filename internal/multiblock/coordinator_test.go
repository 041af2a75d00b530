package multiblock

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

type coordinatorFixture struct {
	reg     *Registry
	grid    *fakeGrid
	owners  *fakeOwners
	pub     *recordingPublisher
	metrics *Metrics
	coord   *Coordinator
}

func newCoordinatorFixture(opts ...CoordinatorOption) *coordinatorFixture {
	f := &coordinatorFixture{
		reg:     NewRegistry(),
		grid:    newFakeGrid(),
		pub:     &recordingPublisher{},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.owners = newFakeOwners(f.grid)
	opts = append([]CoordinatorOption{WithEventPublisher(f.pub), WithMetrics(f.metrics)}, opts...)
	f.coord = NewCoordinator(f.reg, f.grid, f.owners, opts...)
	return f
}

func (f *coordinatorFixture) place(pos vec.Vec3, id block.BlockID) []*Structure {
	f.grid.set(testWorld, pos, id)
	return f.coord.OnCellPlaced(context.Background(), testWorld, pos, id)
}

func (f *coordinatorFixture) remove(pos vec.Vec3) []*Structure {
	f.grid.set(testWorld, pos, block.AirBlockID)
	delete(f.owners.owners, pos)
	return f.coord.OnCellRemoved(context.Background(), testWorld, pos)
}

func TestCoordinatorPlaceAndGrow(t *testing.T) {
	f := newCoordinatorFixture()

	f.place(v(0, 0, 0), slab)
	f.place(v(1, 0, 0), slab)
	result := f.place(v(2, 0, 0), slab)

	require.Len(t, result, 1)
	live := f.reg.AllLive(testWorld)
	require.Len(t, live, 1)
	assert.Equal(t, mustRange(t, v(0, 0, 0), 3, 1, 1), live[0].rng)
	assert.Same(t, live[0], result[0])

	for x := 0; x < 3; x++ {
		owner := f.owners.owners[v(x, 0, 0)]
		require.NotNil(t, owner)
		assert.True(t, owner.HasValidStructure(), "owner at x=%d", x)
		rel, err := owner.Reference().RelativePosition()
		require.NoError(t, err)
		assert.Equal(t, v(x, 0, 0), rel)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.formed))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.merges))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.live.WithLabelValues(string(testWorld))))
}

func TestCoordinatorBreakAndSplit(t *testing.T) {
	f := newCoordinatorFixture()
	for x := 0; x < 3; x++ {
		f.place(v(x, 0, 0), slab)
	}
	f.pub.events = nil

	result := f.remove(v(1, 0, 0))

	require.Len(t, result, 2)
	live := f.reg.AllLive(testWorld)
	require.Len(t, live, 2)
	assert.Equal(t, SingleCell(v(0, 0, 0)), live[0].rng)
	assert.Equal(t, SingleCell(v(2, 0, 0)), live[1].rng)
	requireNoOverlap(t, f.reg, testWorld)

	for _, x := range []int{0, 2} {
		owner := f.owners.owners[v(x, 0, 0)]
		assert.True(t, owner.HasValidStructure())
		assert.True(t, owner.Reference().IsMasterCell())
	}
	assert.Equal(t, []EventKind{EventSplit}, f.pub.kinds())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.splits))
}

func TestCoordinatorRemoveLastCell(t *testing.T) {
	f := newCoordinatorFixture()
	f.place(v(0, 0, 0), slab)
	f.pub.events = nil

	result := f.remove(v(0, 0, 0))
	assert.Empty(t, result)
	assert.Equal(t, 0, f.reg.Count(testWorld))
	assert.Equal(t, []EventKind{EventRemoved}, f.pub.kinds())

	// удаление вне структур ничего не делает
	assert.Empty(t, f.remove(v(9, 9, 9)))
}

func TestCoordinatorGrowsPlane(t *testing.T) {
	f := newCoordinatorFixture()
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			f.place(v(x, y, 0), slab)
		}
	}

	live := f.reg.AllLive(testWorld)
	require.Len(t, live, 1)
	assert.Equal(t, mustRange(t, v(0, 0, 0), 3, 2, 1), live[0].rng)
	for _, o := range f.owners.owners {
		assert.True(t, o.HasValidStructure())
	}
}

func TestCoordinatorBridgePlacementMergesBothSides(t *testing.T) {
	f := newCoordinatorFixture()
	f.place(v(0, 0, 0), slab)
	f.place(v(2, 0, 0), slab)
	require.Equal(t, 2, f.reg.Count(testWorld))

	result := f.place(v(1, 0, 0), slab)
	require.Len(t, result, 1)
	assert.Equal(t, mustRange(t, v(0, 0, 0), 3, 1, 1), result[0].rng)
	assert.Equal(t, 1, f.reg.Count(testWorld))
}

func TestCoordinatorTypesDoNotMix(t *testing.T) {
	f := newCoordinatorFixture()
	f.place(v(0, 0, 0), slab)
	f.place(v(1, 0, 0), marble)
	f.place(v(2, 0, 0), marble)

	live := f.reg.AllLive(testWorld)
	require.Len(t, live, 2)
	assert.Equal(t, slab, live[0].cellType)
	assert.Equal(t, marble, live[1].cellType)
	assert.Equal(t, mustRange(t, v(1, 0, 0), 2, 1, 1), live[1].rng)
}

func TestCoordinatorRespectsMaxAxis(t *testing.T) {
	f := newCoordinatorFixture()
	for x := 0; x < MaxAxis+2; x++ {
		f.place(v(x, 0, 0), slab)
	}

	requireNoOverlap(t, f.reg, testWorld)
	total := 0
	for _, s := range f.reg.AllLive(testWorld) {
		total += s.rng.Volume()
	}
	assert.Equal(t, MaxAxis+2, total)
}

func TestCoordinatorNeighborChanged(t *testing.T) {
	f := newCoordinatorFixture()
	for x := 0; x < 3; x++ {
		f.place(v(x, 0, 0), slab)
	}
	s := f.reg.FindAt(testWorld, v(0, 0, 0))
	require.NotNil(t, s)

	result := f.coord.OnNeighborChanged(context.Background(), testWorld, v(0, 0, 0))
	require.Len(t, result, 1)
	assert.Same(t, s, result[0], "intact structure is left alone")

	// ячейка подменена в обход событий удаления
	f.grid.set(testWorld, v(2, 0, 0), marble)
	result = f.coord.OnNeighborChanged(context.Background(), testWorld, v(1, 0, 0))
	require.Len(t, result, 1)
	assert.True(t, s.IsDisposed())
	assert.Equal(t, mustRange(t, v(0, 0, 0), 2, 1, 1), result[0].rng)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.integrityFailures))
}

func TestCoordinatorClearsStaleOwners(t *testing.T) {
	f := newCoordinatorFixture()
	f.place(v(0, 0, 0), slab)
	f.place(v(1, 0, 0), slab)

	owner := f.owners.owners[v(1, 0, 0)]
	require.NotNil(t, owner)
	changesBefore := owner.changes

	// тип сменился, владелец пока остаётся в таблице
	f.grid.set(testWorld, v(1, 0, 0), marble)
	f.coord.OnCellRemoved(context.Background(), testWorld, v(1, 0, 0))

	assert.Nil(t, owner.Reference())
	assert.Equal(t, changesBefore+1, owner.changes)
}

func TestCoordinatorMergeRoundCap(t *testing.T) {
	f := newCoordinatorFixture(WithMergeRoundCap(1))

	// два готовых соседа с обеих сторон: за один раунд сливается только один
	f.grid.set(testWorld, v(0, 0, 0), slab)
	f.grid.set(testWorld, v(2, 0, 0), slab)
	mustBuild(t, f.reg, f.grid, slab, SingleCell(v(0, 0, 0)))
	mustBuild(t, f.reg, f.grid, slab, SingleCell(v(2, 0, 0)))

	f.place(v(1, 0, 0), slab)

	assert.Equal(t, 2, f.reg.Count(testWorld))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.roundCapHits))
	requireNoOverlap(t, f.reg, testWorld)
}

func TestCoordinatorMergeRoundCapNotHitWhenDone(t *testing.T) {
	f := newCoordinatorFixture(WithMergeRoundCap(2))

	// ровно два слияния: после них сливать больше не с чем
	f.grid.set(testWorld, v(0, 0, 0), slab)
	f.grid.set(testWorld, v(2, 0, 0), slab)
	mustBuild(t, f.reg, f.grid, slab, SingleCell(v(0, 0, 0)))
	mustBuild(t, f.reg, f.grid, slab, SingleCell(v(2, 0, 0)))

	f.place(v(1, 0, 0), slab)

	require.Equal(t, 1, f.reg.Count(testWorld))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.merges))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.roundCapHits))
}

func TestCoordinatorSplitKeepsEveryCellAfterHoledFragments(t *testing.T) {
	f := newCoordinatorFixture()
	for z := 0; z < 3; z++ {
		for x := 0; x < 3; x++ {
			f.place(v(x, 0, z), slab)
		}
	}
	live := f.reg.AllLive(testWorld)
	require.Len(t, live, 1)
	require.Equal(t, mustRange(t, v(0, 0, 0), 3, 1, 3), live[0].rng)

	// кольцо, затем подкова, затем угол отделяется от L-образного остатка
	f.remove(v(1, 0, 1))
	f.remove(v(1, 0, 0))
	f.remove(v(0, 0, 1))

	remaining := []vec.Vec3{v(0, 0, 0), v(2, 0, 0), v(2, 0, 1), v(0, 0, 2), v(1, 0, 2), v(2, 0, 2)}
	for _, p := range remaining {
		s := f.reg.FindByPosition(testWorld, p)
		require.NotNil(t, s, "cell %s lost its structure", p)
		assert.True(t, s.CheckIntegrity(), "%s", s)

		owner := f.owners.owners[p]
		require.NotNil(t, owner)
		assert.True(t, owner.HasValidStructure(), "owner at %s", p)
	}
	assert.Len(t, f.reg.AllLive(testWorld), 3)
	requireNoOverlap(t, f.reg, testWorld)
}

func TestCoordinatorEvents(t *testing.T) {
	f := newCoordinatorFixture()
	f.place(v(0, 0, 0), slab)
	f.place(v(0, 1, 0), slab)

	assert.Equal(t, []EventKind{EventFormed, EventFormed, EventMerged}, f.pub.kinds())
	merged := f.pub.events[2]
	assert.Equal(t, "foodcraft:heat_resistant_slab", merged.CellTypeID)
	assert.Equal(t, testWorld, merged.World)
	assert.Equal(t, []PatternRange{SingleCell(v(0, 1, 0)), SingleCell(v(0, 0, 0))}, merged.Sources)
	assert.Equal(t, []PatternRange{mustRange(t, v(0, 0, 0), 1, 2, 1)}, merged.Results)
}

func TestCoordinatorWithoutOwnersOrPublisher(t *testing.T) {
	reg := NewRegistry()
	grid := newFakeGrid()
	coord := NewCoordinator(reg, grid, nil)

	grid.set(testWorld, v(0, 0, 0), slab)
	result := coord.OnCellPlaced(context.Background(), testWorld, v(0, 0, 0), slab)
	require.Len(t, result, 1)

	// устаревшее событие: в сетке уже другой тип
	result = coord.OnCellPlaced(context.Background(), testWorld, v(5, 0, 0), slab)
	assert.Empty(t, result)
	assert.Equal(t, 1, reg.Count(testWorld))
}

func TestCoordinatorRebindOwnersAfterRestore(t *testing.T) {
	f := newCoordinatorFixture()
	rng := mustRange(t, v(0, 0, 0), 2, 1, 2)
	f.grid.fill(testWorld, rng, slab)

	n, err := Restore(f.reg, f.grid, testWorld, []StructureRecord{{
		Anchor:     v(0, 0, 0),
		CellTypeID: "foodcraft:heat_resistant_slab",
		RangeStart: v(0, 0, 0),
		Width:      2, Height: 1, Depth: 2,
	}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	f.coord.RebindOwners(testWorld)

	s := f.reg.FindAt(testWorld, v(0, 0, 0))
	require.NotNil(t, s)
	rng.ForEach(func(p vec.Vec3) bool {
		owner := f.owners.OwnerAt(testWorld, p)
		require.NotNil(t, owner)
		assert.True(t, owner.HasValidStructure(), "owner at %s", p)
		return true
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.live.WithLabelValues(string(testWorld))))
}
