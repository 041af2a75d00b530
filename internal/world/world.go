package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/666daji/Food-Craft-sub000/internal/logging"
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// ErrUnknownBlock — попытка поставить незарегистрированный блок
var ErrUnknownBlock = errors.New("unknown block id")

var worldLog = logging.GetWorldLogger()

// CellListener получает события изменения маркерных ячеек (координатор структур)
type CellListener interface {
	OnCellPlaced(ctx context.Context, world multiblock.WorldID, pos vec.Vec3, cellType block.BlockID) []*multiblock.Structure
	OnCellRemoved(ctx context.Context, world multiblock.WorldID, pos vec.Vec3) []*multiblock.Structure
	OnNeighborChanged(ctx context.Context, world multiblock.WorldID, pos vec.Vec3) []*multiblock.Structure
}

// Grid — разреженная сетка одного мира из чанков 16^3
type Grid struct {
	ID        multiblock.WorldID
	mu        sync.RWMutex
	chunks    map[vec.Vec3]*Chunk
	generator *Generator
}

// NewGrid создаёт сетку; generator может быть nil (пустой мир)
func NewGrid(id multiblock.WorldID, generator *Generator) *Grid {
	return &Grid{
		ID:        id,
		chunks:    make(map[vec.Vec3]*Chunk),
		generator: generator,
	}
}

// chunk возвращает чанк позиции; при create создаёт его (через генератор, если он есть)
func (g *Grid) chunk(coords vec.Vec3, create bool) *Chunk {
	g.mu.RLock()
	c, ok := g.chunks[coords]
	g.mu.RUnlock()
	if ok || !create {
		return c
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok = g.chunks[coords]; ok {
		return c
	}
	if g.generator != nil {
		c = g.generator.GenerateChunk(coords)
	} else {
		c = NewChunk(coords)
	}
	g.chunks[coords] = c
	return c
}

// LoadChunk гарантирует, что чанк загружен (сгенерирован)
func (g *Grid) LoadChunk(coords vec.Vec3) *Chunk {
	return g.chunk(coords, true)
}

// GetBlock возвращает тип ячейки; незагруженные чанки читаются как воздух
func (g *Grid) GetBlock(pos vec.Vec3) block.BlockID {
	c := g.chunk(pos.ToChunkCoords(), false)
	if c == nil {
		return block.AirBlockID
	}
	return c.GetBlock(pos.LocalInChunk())
}

// SetBlock пишет ячейку и возвращает предыдущий тип
func (g *Grid) SetBlock(pos vec.Vec3, id block.BlockID) block.BlockID {
	return g.chunk(pos.ToChunkCoords(), true).SetBlock(pos.LocalInChunk(), id)
}

// Owner возвращает объект состояния ячейки или nil
func (g *Grid) Owner(pos vec.Vec3) *StructureCell {
	c := g.chunk(pos.ToChunkCoords(), false)
	if c == nil {
		return nil
	}
	return c.Owner(pos.LocalInChunk())
}

func (g *Grid) setOwner(pos vec.Vec3, cell *StructureCell) {
	g.chunk(pos.ToChunkCoords(), true).setOwner(pos.LocalInChunk(), cell)
}

// ChunkCount возвращает число загруженных чанков
func (g *Grid) ChunkCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chunks)
}

// WorldManager держит сетки миров и направляет изменения маркерных ячеек
// координатору. Реализует multiblock.GridView и multiblock.OwnerSource.
//
// Все мутации сериализуются mutMu: это единственный поток изменений мира.
type WorldManager struct {
	mu        sync.RWMutex
	grids     map[multiblock.WorldID]*Grid
	registry  *multiblock.Registry
	generator *Generator
	listener  CellListener
	mutMu     sync.Mutex
}

var (
	_ multiblock.GridView    = (*WorldManager)(nil)
	_ multiblock.OwnerSource = (*WorldManager)(nil)
)

// NewWorldManager создаёт менеджер миров. generator может быть nil.
func NewWorldManager(registry *multiblock.Registry, generator *Generator) *WorldManager {
	return &WorldManager{
		grids:     make(map[multiblock.WorldID]*Grid),
		registry:  registry,
		generator: generator,
	}
}

// SetListener подключает получателя событий ячеек
func (wm *WorldManager) SetListener(l CellListener) {
	wm.mutMu.Lock()
	defer wm.mutMu.Unlock()
	wm.listener = l
}

// Grid возвращает сетку мира, создавая её при первом обращении
func (wm *WorldManager) Grid(world multiblock.WorldID) *Grid {
	wm.mu.RLock()
	g, ok := wm.grids[world]
	wm.mu.RUnlock()
	if ok {
		return g
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if g, ok = wm.grids[world]; ok {
		return g
	}
	g = NewGrid(world, wm.generator)
	wm.grids[world] = g
	worldLog.Info("world %s loaded", world)
	return g
}

func (wm *WorldManager) existingGrid(world multiblock.WorldID) *Grid {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.grids[world]
}

// Worlds возвращает загруженные миры
func (wm *WorldManager) Worlds() []multiblock.WorldID {
	wm.mu.RLock()
	out := make([]multiblock.WorldID, 0, len(wm.grids))
	for id := range wm.grids {
		out = append(out, id)
	}
	wm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GenerateArea загружает квадрат чанков радиусом radius вокруг начала координат
func (wm *WorldManager) GenerateArea(world multiblock.WorldID, radius int) int {
	g := wm.Grid(world)
	top := (BaseHeight + HeightRange) >> 4
	n := 0
	for cx := -radius; cx <= radius; cx++ {
		for cz := -radius; cz <= radius; cz++ {
			for cy := 0; cy <= top; cy++ {
				g.LoadChunk(vec.Vec3{X: cx, Y: cy, Z: cz})
				n++
			}
		}
	}
	worldLog.Info("world %s: generated %d chunks", world, n)
	return n
}

// UnloadWorld выгружает мир и освобождает его структуры в регистре
func (wm *WorldManager) UnloadWorld(world multiblock.WorldID) {
	wm.mutMu.Lock()
	defer wm.mutMu.Unlock()

	wm.mu.Lock()
	delete(wm.grids, world)
	wm.mu.Unlock()

	if wm.registry != nil {
		wm.registry.CloseWorld(world)
	}
	worldLog.Info("world %s unloaded", world)
}

// CellTypeAt реализует multiblock.GridView
func (wm *WorldManager) CellTypeAt(world multiblock.WorldID, pos vec.Vec3) block.BlockID {
	g := wm.existingGrid(world)
	if g == nil {
		return block.AirBlockID
	}
	return g.GetBlock(pos)
}

// OwnerAt реализует multiblock.OwnerSource
func (wm *WorldManager) OwnerAt(world multiblock.WorldID, pos vec.Vec3) multiblock.CellOwner {
	g := wm.existingGrid(world)
	if g == nil {
		return nil
	}
	if cell := g.Owner(pos); cell != nil {
		return cell
	}
	return nil
}

// Cell возвращает объект состояния ячейки с конкретным типом
func (wm *WorldManager) Cell(world multiblock.WorldID, pos vec.Vec3) *StructureCell {
	g := wm.existingGrid(world)
	if g == nil {
		return nil
	}
	return g.Owner(pos)
}

// GetBlock возвращает тип ячейки
func (wm *WorldManager) GetBlock(world multiblock.WorldID, pos vec.Vec3) block.BlockID {
	return wm.CellTypeAt(world, pos)
}

// SetBlock ставит блок и синхронно прогоняет реакцию структур
func (wm *WorldManager) SetBlock(ctx context.Context, world multiblock.WorldID, pos vec.Vec3, id block.BlockID) error {
	if !block.IsValidBlockID(id) {
		return fmt.Errorf("set block %d at %s: %w", id, pos, ErrUnknownBlock)
	}

	wm.mutMu.Lock()
	defer wm.mutMu.Unlock()

	wm.setBlockLocked(ctx, world, pos, id)
	return nil
}

func (wm *WorldManager) setBlockLocked(ctx context.Context, world multiblock.WorldID, pos vec.Vec3, id block.BlockID) {
	g := wm.Grid(world)
	prev := g.SetBlock(pos, id)
	if prev == id {
		return
	}

	// Объект состояния живёт ровно пока в ячейке блок, которому он нужен
	if old := g.Owner(pos); old != nil {
		if ref := old.Reference(); ref != nil {
			ref.Dispose()
		}
		g.setOwner(pos, nil)
	}
	if block.HasCellOwner(id) {
		g.setOwner(pos, NewStructureCell(world, pos, id))
	}

	api := &worldBlockAPI{wm: wm, world: world, ctx: ctx}

	if wm.listener != nil && block.IsMarker(prev) {
		wm.listener.OnCellRemoved(ctx, world, pos)
	}
	if wm.listener != nil && block.IsMarker(id) {
		wm.listener.OnCellPlaced(ctx, world, pos, id)
	}

	// Хуки блоков срабатывают после того, как структура в самой позиции пересобрана
	if behavior, ok := block.Get(prev); ok {
		behavior.OnBreak(api, pos)
	}
	if behavior, ok := block.Get(id); ok {
		behavior.OnPlace(api, pos)
	}
}

// triggerNeighborUpdates сообщает маркерным соседям об изменении позиции
func (wm *WorldManager) triggerNeighborUpdates(ctx context.Context, world multiblock.WorldID, pos vec.Vec3) {
	if wm.listener == nil {
		return
	}
	for _, n := range pos.Neighbors() {
		if block.IsMarker(wm.CellTypeAt(world, n)) {
			wm.listener.OnNeighborChanged(ctx, world, n)
		}
	}
}

// worldBlockAPI реализует block.BlockAPI для одного мира.
// Вызывается только изнутри setBlockLocked, поэтому mutMu уже захвачен.
type worldBlockAPI struct {
	wm    *WorldManager
	world multiblock.WorldID
	ctx   context.Context
}

func (api *worldBlockAPI) GetBlockID(pos vec.Vec3) block.BlockID {
	return api.wm.CellTypeAt(api.world, pos)
}

func (api *worldBlockAPI) SetBlock(pos vec.Vec3, id block.BlockID) {
	if !block.IsValidBlockID(id) {
		worldLog.Warn("block hook tried to set unknown block %d at %s", id, pos)
		return
	}
	api.wm.setBlockLocked(api.ctx, api.world, pos, id)
}

func (api *worldBlockAPI) TriggerNeighborUpdates(pos vec.Vec3) {
	api.wm.triggerNeighborUpdates(api.ctx, api.world, pos)
}
