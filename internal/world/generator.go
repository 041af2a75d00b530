package world

import (
	"github.com/aquilax/go-perlin"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// Параметры рельефа
const (
	BaseHeight   = 8  // Минимальная высота поверхности
	HeightRange  = 12 // Разброс высоты поверхности
	DirtDepth    = 3  // Толщина слоя земли над камнем
	perlinAlpha  = 2.0
	perlinBeta   = 2.0
	perlinOctave = int32(3)
)

// Generator генерирует простой рельеф: камень, сверху земля, выше воздух
type Generator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб шума высоты
	noise      *perlin.Perlin
}

// NewGenerator создаёт генератор рельефа
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:       seed,
		NoiseScale: 0.05,
		noise:      perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctave, seed),
	}
}

// SurfaceHeight возвращает высоту верхнего твёрдого блока колонны (x, z)
func (g *Generator) SurfaceHeight(x, z int) int {
	// Noise2D даёт примерно [-1, 1]
	n := g.noise.Noise2D(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	h := BaseHeight + int((n+1)/2*HeightRange)
	return max(BaseHeight, min(BaseHeight+HeightRange, h))
}

// BlockAt возвращает тип сгенерированной ячейки в мировой позиции
func (g *Generator) BlockAt(pos vec.Vec3) block.BlockID {
	if pos.Y < 0 {
		return block.StoneBlockID
	}
	surface := g.SurfaceHeight(pos.X, pos.Z)
	switch {
	case pos.Y > surface:
		return block.AirBlockID
	case pos.Y > surface-DirtDepth:
		return block.DirtBlockID
	default:
		return block.StoneBlockID
	}
}

// GenerateChunk генерирует чанк по его координатам
func (g *Generator) GenerateChunk(coords vec.Vec3) *Chunk {
	chunk := NewChunk(coords)
	origin := vec.Vec3{X: coords.X << 4, Y: coords.Y << 4, Z: coords.Z << 4}

	// Чанк целиком выше рельефа остаётся воздухом
	if origin.Y > BaseHeight+HeightRange {
		return chunk
	}

	for x := 0; x < ChunkSize; x++ {
		for z := 0; z < ChunkSize; z++ {
			surface := g.SurfaceHeight(origin.X+x, origin.Z+z)
			for y := 0; y < ChunkSize; y++ {
				wy := origin.Y + y
				var id block.BlockID
				switch {
				case wy > surface:
					id = block.AirBlockID
				case wy > surface-DirtDepth:
					id = block.DirtBlockID
				default:
					id = block.StoneBlockID
				}
				chunk.Blocks[x][y][z] = id
			}
		}
	}
	return chunk
}
