package eventbus

import (
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
	_ "github.com/666daji/Food-Craft-sub000/internal/world/block/implementations"
)

const marble = block.MarbleSlabBlockID

// staticGrid — сетка одного мира на карте
type staticGrid map[vec.Vec3]block.BlockID

func (g staticGrid) CellTypeAt(_ multiblock.WorldID, pos vec.Vec3) block.BlockID {
	return g[pos]
}
