package block

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]BlockBehavior)
	byName     = make(map[string]BlockID)
)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if old, exists := registry[id]; exists {
		delete(byName, old.Name())
	}
	registry[id] = behavior
	byName[behavior.Name()] = id
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	behavior, exists := registry[id]
	return behavior, exists
}

// ByName ищет ID блока по строковому идентификатору
func ByName(name string) (BlockID, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	id, exists := byName[name]
	return id, exists
}

// Name возвращает строковый идентификатор блока; для незарегистрированных пустая строка.
func Name(id BlockID) string {
	behavior, exists := Get(id)
	if !exists {
		return ""
	}
	return behavior.Name()
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// IsMarker сообщает, является ли блок маркером мультиблочных структур
func IsMarker(id BlockID) bool {
	behavior, exists := Get(id)
	return exists && behavior.IsMultiblockMarker()
}

// HasCellOwner сообщает, создаётся ли для блока объект состояния ячейки
func HasCellOwner(id BlockID) bool {
	behavior, exists := Get(id)
	return exists && behavior.HasCellOwner()
}

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	DirtBlockID                 // 2

	// Маркерные блоки мультиструктур (начиная с 300)
	HeatResistantSlabBlockID BlockID = 300 // Жаростойкая плита, из неё собирают печь
	MarbleSlabBlockID        BlockID = 301 // Мраморная плита для разделочного стола
)
