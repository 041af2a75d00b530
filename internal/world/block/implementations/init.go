package implementations

import "github.com/666daji/Food-Craft-sub000/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.StoneBlockID, &StoneBehavior{})
	block.Register(block.DirtBlockID, &DirtBehavior{})

	// Маркеры мультиструктур
	block.Register(block.HeatResistantSlabBlockID,
		NewSlabBehavior(block.HeatResistantSlabBlockID, "foodcraft:heat_resistant_slab"))
	block.Register(block.MarbleSlabBlockID,
		NewSlabBehavior(block.MarbleSlabBlockID, "foodcraft:marble_slab"))
}
