package implementations

import (
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// SlabBehavior — маркерная плита. Соседние плиты одного типа объединяются
// в прямоугольные структуры; каждой ячейке нужен объект состояния.
type SlabBehavior struct {
	id   block.BlockID
	name string
}

// NewSlabBehavior создаёт поведение плиты с указанным ID и именем
func NewSlabBehavior(id block.BlockID, name string) *SlabBehavior {
	return &SlabBehavior{id: id, name: name}
}

func (b *SlabBehavior) ID() block.BlockID {
	return b.id
}

func (b *SlabBehavior) Name() string {
	return b.name
}

func (b *SlabBehavior) IsMultiblockMarker() bool {
	return true
}

func (b *SlabBehavior) HasCellOwner() bool {
	return true
}

// OnPlace будит соседей: структура могла вырасти или слиться
func (b *SlabBehavior) OnPlace(api block.BlockAPI, pos vec.Vec3) {
	api.TriggerNeighborUpdates(pos)
}

// OnBreak будит соседей: структура могла распасться
func (b *SlabBehavior) OnBreak(api block.BlockAPI, pos vec.Vec3) {
	api.TriggerNeighborUpdates(pos)
}
