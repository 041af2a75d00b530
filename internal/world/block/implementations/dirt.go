package implementations

import (
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// DirtBehavior реализует поведение блока земли
type DirtBehavior struct {
	block.BaseBehavior
}

func (b *DirtBehavior) ID() block.BlockID {
	return block.DirtBlockID
}

func (b *DirtBehavior) Name() string {
	return "foodcraft:dirt"
}
