package multiblock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
	_ "github.com/666daji/Food-Craft-sub000/internal/world/block/implementations"
)

const (
	testWorld WorldID = "test"
	slab              = block.HeatResistantSlabBlockID
	marble            = block.MarbleSlabBlockID
)

// fakeGrid — разреженная сетка в памяти для тестов
type fakeGrid struct {
	mu    sync.RWMutex
	cells map[WorldID]map[vec.Vec3]block.BlockID
}

func newFakeGrid() *fakeGrid {
	return &fakeGrid{cells: make(map[WorldID]map[vec.Vec3]block.BlockID)}
}

func (g *fakeGrid) CellTypeAt(world WorldID, pos vec.Vec3) block.BlockID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[world][pos]
}

func (g *fakeGrid) set(world WorldID, pos vec.Vec3, id block.BlockID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cells[world] == nil {
		g.cells[world] = make(map[vec.Vec3]block.BlockID)
	}
	if id == block.AirBlockID {
		delete(g.cells[world], pos)
		return
	}
	g.cells[world][pos] = id
}

func (g *fakeGrid) fill(world WorldID, rng PatternRange, id block.BlockID) {
	rng.ForEach(func(p vec.Vec3) bool {
		g.set(world, p, id)
		return true
	})
}

// testOwner — владелец ячейки, считающий вызовы хука
type testOwner struct {
	OwnerBase
	changes int
}

func (o *testOwner) OnStructureChanged(old, new Reference) {
	o.changes++
}

// fakeOwners создаёт владельцев лениво для маркерных ячеек сетки
type fakeOwners struct {
	grid   *fakeGrid
	owners map[vec.Vec3]*testOwner
}

func newFakeOwners(grid *fakeGrid) *fakeOwners {
	return &fakeOwners{grid: grid, owners: make(map[vec.Vec3]*testOwner)}
}

func (f *fakeOwners) OwnerAt(world WorldID, pos vec.Vec3) CellOwner {
	if !block.HasCellOwner(f.grid.CellTypeAt(world, pos)) {
		return nil
	}
	o, ok := f.owners[pos]
	if !ok {
		o = &testOwner{OwnerBase: NewOwnerBase(pos)}
		f.owners[pos] = o
	}
	return o
}

type recordingPublisher struct {
	events []StructureEvent
}

func (p *recordingPublisher) PublishStructureEvent(_ context.Context, ev StructureEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []EventKind {
	out := make([]EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

func mustRange(t *testing.T, anchor vec.Vec3, w, h, d int) PatternRange {
	t.Helper()
	rng, err := NewPatternRange(anchor, w, h, d)
	require.NoError(t, err)
	return rng
}

func mustBuild(t *testing.T, reg *Registry, grid GridView, cellType block.BlockID, rng PatternRange) *Structure {
	t.Helper()
	s, err := Build(reg, grid, testWorld, cellType, rng)
	require.NoError(t, err)
	return s
}

// requireNoOverlap проверяет, что живые структуры мира не пересекаются и не превышают лимиты
func requireNoOverlap(t *testing.T, reg *Registry, world WorldID) {
	t.Helper()
	live := reg.AllLive(world)
	for i, a := range live {
		require.LessOrEqual(t, a.rng.Volume(), MaxVolume)
		require.LessOrEqual(t, a.rng.Width, MaxAxis)
		require.LessOrEqual(t, a.rng.Height, MaxAxis)
		require.LessOrEqual(t, a.rng.Depth, MaxAxis)
		for _, b := range live[i+1:] {
			require.False(t, a.rng.Intersects(b.rng), "%s overlaps %s", a, b)
		}
	}
}

func v(x, y, z int) vec.Vec3 {
	return vec.Vec3{X: x, Y: y, Z: z}
}
