package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
	_ "github.com/666daji/Food-Craft-sub000/internal/world/block/implementations"
)

const kitchen multiblock.WorldID = "kitchen"

func newTestWorld() (*WorldManager, *multiblock.Registry) {
	reg := multiblock.NewRegistry()
	wm := NewWorldManager(reg, nil)
	wm.SetListener(multiblock.NewCoordinator(reg, wm, wm))
	return wm, reg
}

func TestChunkSetAndGet(t *testing.T) {
	c := NewChunk(vec.Vec3{X: -1, Y: 0, Z: 2})
	local := vec.Vec3{X: 15, Y: 3, Z: 0}

	assert.Equal(t, block.AirBlockID, c.GetBlock(local))
	assert.Equal(t, block.AirBlockID, c.SetBlock(local, block.StoneBlockID))
	assert.Equal(t, block.StoneBlockID, c.GetBlock(local))
	assert.True(t, c.HasChanges())
	assert.Equal(t, 1, c.CountBlocks(block.StoneBlockID))

	c.ClearChanges()
	c.SetBlock(local, block.StoneBlockID)
	assert.False(t, c.HasChanges(), "writing the same block is not a change")
}

func TestGridNegativeCoordinates(t *testing.T) {
	g := NewGrid(kitchen, nil)
	pos := vec.Vec3{X: -1, Y: -17, Z: 33}

	assert.Equal(t, block.AirBlockID, g.GetBlock(pos))
	assert.Equal(t, 0, g.ChunkCount(), "reads do not load chunks")

	g.SetBlock(pos, block.DirtBlockID)
	assert.Equal(t, block.DirtBlockID, g.GetBlock(pos))
	assert.Equal(t, block.AirBlockID, g.GetBlock(vec.Vec3{X: 15, Y: -17, Z: 33}))
	assert.Equal(t, 1, g.ChunkCount())
}

func TestSetBlockRejectsUnknown(t *testing.T) {
	wm, _ := newTestWorld()
	err := wm.SetBlock(context.Background(), kitchen, vec.Vec3{}, block.BlockID(9999))
	assert.ErrorIs(t, err, ErrUnknownBlock)
}

func TestPlaceSlabsFormsStructure(t *testing.T) {
	wm, reg := newTestWorld()
	ctx := context.Background()

	for x := 0; x < 3; x++ {
		require.NoError(t, wm.SetBlock(ctx, kitchen, vec.Vec3{X: x, Y: 5, Z: 0}, block.HeatResistantSlabBlockID))
	}

	live := reg.AllLive(kitchen)
	require.Len(t, live, 1)
	rng, err := live[0].Range()
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{X: 0, Y: 5, Z: 0}, rng.Anchor)
	assert.Equal(t, 3, rng.Width)

	for x := 0; x < 3; x++ {
		cell := wm.Cell(kitchen, vec.Vec3{X: x, Y: 5, Z: 0})
		require.NotNil(t, cell)
		assert.True(t, cell.HasValidStructure())

		snap := cell.Detached()
		require.NotNil(t, snap)
		w, _, _, err := snap.Dimensions()
		require.NoError(t, err)
		assert.Equal(t, 3, w)
	}
}

func TestBreakSlabSplitsStructure(t *testing.T) {
	wm, reg := newTestWorld()
	ctx := context.Background()
	for x := 0; x < 3; x++ {
		require.NoError(t, wm.SetBlock(ctx, kitchen, vec.Vec3{X: x}, block.HeatResistantSlabBlockID))
	}

	require.NoError(t, wm.SetBlock(ctx, kitchen, vec.Vec3{X: 1}, block.AirBlockID))

	live := reg.AllLive(kitchen)
	require.Len(t, live, 2)
	assert.Nil(t, wm.Cell(kitchen, vec.Vec3{X: 1}))
	for _, x := range []int{0, 2} {
		cell := wm.Cell(kitchen, vec.Vec3{X: x})
		require.NotNil(t, cell)
		assert.True(t, cell.HasValidStructure())
	}
}

func TestReplaceSlabWithOtherMarker(t *testing.T) {
	wm, reg := newTestWorld()
	ctx := context.Background()
	for x := 0; x < 3; x++ {
		require.NoError(t, wm.SetBlock(ctx, kitchen, vec.Vec3{X: x}, block.HeatResistantSlabBlockID))
	}

	require.NoError(t, wm.SetBlock(ctx, kitchen, vec.Vec3{X: 2}, block.MarbleSlabBlockID))

	live := reg.AllLive(kitchen)
	require.Len(t, live, 2)
	assert.Equal(t, block.HeatResistantSlabBlockID, live[0].CellType())
	assert.Equal(t, block.MarbleSlabBlockID, live[1].CellType())

	cell := wm.Cell(kitchen, vec.Vec3{X: 2})
	require.NotNil(t, cell)
	assert.Equal(t, block.MarbleSlabBlockID, cell.CellType)
	assert.True(t, cell.HasValidStructure())
}

func TestOwnerAtReturnsNilInterface(t *testing.T) {
	wm, _ := newTestWorld()
	assert.Nil(t, wm.OwnerAt(kitchen, vec.Vec3{}))

	require.NoError(t, wm.SetBlock(context.Background(), kitchen, vec.Vec3{}, block.StoneBlockID))
	assert.Nil(t, wm.OwnerAt(kitchen, vec.Vec3{}))
}

func TestUnloadWorldClosesRegistry(t *testing.T) {
	wm, reg := newTestWorld()
	ctx := context.Background()
	require.NoError(t, wm.SetBlock(ctx, kitchen, vec.Vec3{}, block.MarbleSlabBlockID))
	require.NoError(t, wm.SetBlock(ctx, "cellar", vec.Vec3{}, block.MarbleSlabBlockID))

	s := reg.FindAt(kitchen, vec.Vec3{})
	require.NotNil(t, s)

	wm.UnloadWorld(kitchen)

	assert.True(t, s.IsDisposed())
	assert.Equal(t, 0, reg.Count(kitchen))
	assert.Equal(t, 1, reg.Count("cellar"))
	assert.Equal(t, []multiblock.WorldID{"cellar"}, wm.Worlds())
	assert.Equal(t, block.AirBlockID, wm.CellTypeAt(kitchen, vec.Vec3{}))
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(42)
	b := NewGenerator(42)

	for _, col := range [][2]int{{0, 0}, {17, -5}, {-40, 90}} {
		h := a.SurfaceHeight(col[0], col[1])
		assert.Equal(t, h, b.SurfaceHeight(col[0], col[1]))
		assert.GreaterOrEqual(t, h, BaseHeight)
		assert.LessOrEqual(t, h, BaseHeight+HeightRange)

		assert.Equal(t, block.DirtBlockID, a.BlockAt(vec.Vec3{X: col[0], Y: h, Z: col[1]}))
		assert.Equal(t, block.AirBlockID, a.BlockAt(vec.Vec3{X: col[0], Y: h + 1, Z: col[1]}))
		assert.Equal(t, block.StoneBlockID, a.BlockAt(vec.Vec3{X: col[0], Y: h - DirtDepth, Z: col[1]}))
	}
}

func TestGeneratedChunkMatchesBlockAt(t *testing.T) {
	gen := NewGenerator(7)
	coords := vec.Vec3{X: 1, Y: 0, Z: -2}
	chunk := gen.GenerateChunk(coords)

	for _, local := range []vec.Vec3{{X: 0, Y: 0, Z: 0}, {X: 5, Y: 9, Z: 3}, {X: 15, Y: 15, Z: 15}} {
		world := vec.Vec3{X: coords.X*ChunkSize + local.X, Y: coords.Y*ChunkSize + local.Y, Z: coords.Z*ChunkSize + local.Z}
		assert.Equal(t, gen.BlockAt(world), chunk.GetBlock(local), "local %s", local)
	}

	sky := gen.GenerateChunk(vec.Vec3{Y: 4})
	assert.Equal(t, ChunkSize*ChunkSize*ChunkSize, sky.CountBlocks(block.AirBlockID))
}

func TestGenerateArea(t *testing.T) {
	reg := multiblock.NewRegistry()
	wm := NewWorldManager(reg, NewGenerator(1))

	n := wm.GenerateArea(kitchen, 1)
	assert.Equal(t, 9*(((BaseHeight+HeightRange)>>4)+1), n)
	assert.Equal(t, n, wm.Grid(kitchen).ChunkCount())
	assert.Equal(t, block.StoneBlockID, wm.CellTypeAt(kitchen, vec.Vec3{X: 3, Y: 0, Z: 3}))
}
