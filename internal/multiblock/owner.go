package multiblock

import (
	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// CellOwner — внешний объект состояния ячейки, которому нужно знать свою структуру
type CellOwner interface {
	Reference() Reference
	SetReference(ref Reference)
	OwnerPosition() vec.Vec3
	// OnStructureChanged вызывается после замены ссылки
	OnStructureChanged(old, new Reference)
	HasValidStructure() bool
}

// OwnerSource находит владельца ячейки; nil если ячейка без состояния
type OwnerSource interface {
	OwnerAt(world WorldID, pos vec.Vec3) CellOwner
}

// OwnerBase — встраиваемая реализация CellOwner с пустым хуком
type OwnerBase struct {
	Pos vec.Vec3
	ref Reference
}

// NewOwnerBase создаёт базу владельца для позиции
func NewOwnerBase(pos vec.Vec3) OwnerBase {
	return OwnerBase{Pos: pos}
}

func (o *OwnerBase) Reference() Reference {
	return o.ref
}

func (o *OwnerBase) SetReference(ref Reference) {
	o.ref = ref
}

func (o *OwnerBase) OwnerPosition() vec.Vec3 {
	return o.Pos
}

func (o *OwnerBase) OnStructureChanged(old, new Reference) {}

func (o *OwnerBase) HasValidStructure() bool {
	return HasValidStructure(o.ref, o.Pos)
}

// HasValidStructure: ссылка есть, не устарела и указывает на позицию владельца
func HasValidStructure(ref Reference, ownerPos vec.Vec3) bool {
	if ref == nil || ref.IsDisposed() {
		return false
	}
	pos, err := ref.WorldPosition()
	return err == nil && pos == ownerPos
}
