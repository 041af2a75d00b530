package implementations

import (
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// StoneBehavior реализует поведение блока камня
type StoneBehavior struct {
	block.BaseBehavior
}

// ID возвращает идентификатор блока
func (b *StoneBehavior) ID() block.BlockID {
	return block.StoneBlockID
}

// Name возвращает имя блока
func (b *StoneBehavior) Name() string {
	return "foodcraft:stone"
}
