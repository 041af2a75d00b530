package block

import (
	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// BlockAPI определяет интерфейс для взаимодействия блоков с миром.
// Позиции задаются в мировых координатах одного мира.
type BlockAPI interface {
	// GetBlockID возвращает идентификатор блока в указанной позиции.
	GetBlockID(pos vec.Vec3) BlockID

	// SetBlock устанавливает блок в указанной позиции.
	SetBlock(pos vec.Vec3, id BlockID)

	// TriggerNeighborUpdates сообщает соседям по граням об изменении позиции.
	TriggerNeighborUpdates(pos vec.Vec3)
}
