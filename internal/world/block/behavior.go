package block

import (
	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// BlockBehavior определяет поведение типа блока
type BlockBehavior interface {
	ID() BlockID
	// Name возвращает стабильный строковый идентификатор ("foodcraft:stone"),
	// который пишется в сохранения вместо числового ID.
	Name() string
	// IsMultiblockMarker сообщает, собираются ли соседние блоки этого типа в структуры.
	IsMultiblockMarker() bool
	// HasCellOwner сообщает, нужен ли блоку объект состояния ячейки.
	HasCellOwner() bool
	OnPlace(api BlockAPI, pos vec.Vec3)
	OnBreak(api BlockAPI, pos vec.Vec3)
}

// BaseBehavior даёт пустые реализации хуков для статичных блоков
type BaseBehavior struct{}

func (BaseBehavior) IsMultiblockMarker() bool           { return false }
func (BaseBehavior) HasCellOwner() bool                 { return false }
func (BaseBehavior) OnPlace(api BlockAPI, pos vec.Vec3) {}
func (BaseBehavior) OnBreak(api BlockAPI, pos vec.Vec3) {}
