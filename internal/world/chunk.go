package world

import (
	"sync"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// ChunkSize задаёт размер чанка по каждой оси
const ChunkSize = 16

// Chunk представляет участок мира 16x16x16 блоков
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка в мире

	// Плотный массив типов ячеек [x][y][z]
	Blocks [ChunkSize][ChunkSize][ChunkSize]block.BlockID

	// Объекты состояния ячеек по локальным координатам (разреженно)
	owners map[vec.Vec3]*StructureCell

	ChangeCounter int          // Счетчик изменений с последнего сброса
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт пустой (воздух) чанк с указанными координатами
func NewChunk(coords vec.Vec3) *Chunk {
	return &Chunk{
		Coords: coords,
		owners: make(map[vec.Vec3]*StructureCell),
	}
}

// GetBlock возвращает ID блока по локальным координатам
func (c *Chunk) GetBlock(local vec.Vec3) block.BlockID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Blocks[local.X][local.Y][local.Z]
}

// SetBlock устанавливает блок и возвращает предыдущий
func (c *Chunk) SetBlock(local vec.Vec3, id block.BlockID) block.BlockID {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	prev := c.Blocks[local.X][local.Y][local.Z]
	if prev != id {
		c.Blocks[local.X][local.Y][local.Z] = id
		c.ChangeCounter++
	}
	return prev
}

// Owner возвращает объект состояния ячейки или nil
func (c *Chunk) Owner(local vec.Vec3) *StructureCell {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.owners[local]
}

func (c *Chunk) setOwner(local vec.Vec3, cell *StructureCell) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if cell == nil {
		delete(c.owners, local)
		return
	}
	c.owners[local] = cell
}

// OwnerCount возвращает число объектов состояния в чанке
func (c *Chunk) OwnerCount() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return len(c.owners)
}

// HasChanges возвращает true, если в чанке есть изменения
func (c *Chunk) HasChanges() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счётчик изменений
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.ChangeCounter = 0
}

// CountBlocks возвращает число ячеек указанного типа
func (c *Chunk) CountBlocks(id block.BlockID) int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	n := 0
	for x := range c.Blocks {
		for y := range c.Blocks[x] {
			for z := range c.Blocks[x][y] {
				if c.Blocks[x][y][z] == id {
					n++
				}
			}
		}
	}
	return n
}
