package world

import (
	"github.com/666daji/Food-Craft-sub000/internal/logging"
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// StructureCell — объект состояния маркерной ячейки. Хранит ссылку на
// структуру, в которую входит ячейка.
type StructureCell struct {
	multiblock.OwnerBase
	World    multiblock.WorldID
	CellType block.BlockID
	Changes  int // Сколько раз менялась структура ячейки
}

// NewStructureCell создаёт объект состояния для ячейки
func NewStructureCell(world multiblock.WorldID, pos vec.Vec3, cellType block.BlockID) *StructureCell {
	return &StructureCell{
		OwnerBase: multiblock.NewOwnerBase(pos),
		World:     world,
		CellType:  cellType,
	}
}

// OnStructureChanged фиксирует смену структуры ячейки
func (c *StructureCell) OnStructureChanged(old, new multiblock.Reference) {
	c.Changes++
	if new == nil {
		logging.GetWorldLogger().Trace("cell %s in %s left its structure", c.Pos, c.World)
		return
	}
	if master, err := new.MasterWorldPosition(); err == nil {
		logging.GetWorldLogger().Trace("cell %s in %s now belongs to structure at %s", c.Pos, c.World, master)
	}
}

// Detached возвращает снимок ссылки для отображения; nil если структуры нет
func (c *StructureCell) Detached() *multiblock.DetachedReference {
	live, ok := c.Reference().(*multiblock.LiveReference)
	if !ok || live.IsDisposed() {
		return nil
	}
	snap, err := multiblock.Detach(live)
	if err != nil {
		return nil
	}
	return snap
}
