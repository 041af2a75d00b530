package multiblock

import "errors"

// Ошибки операций над структурами
var (
	ErrInvalidDimensions       = errors.New("invalid dimensions")        // Неположительный размер по оси
	ErrSizeExceeded            = errors.New("structure size exceeded")   // Больше MaxAxis хотя бы по одной оси
	ErrPositionOccupied        = errors.New("anchor position occupied")  // Якорь занят живой структурой
	ErrIncompatibleMerge       = errors.New("incompatible merge")        // Разные миры, типы или геометрия
	ErrInvalidRelativePosition = errors.New("invalid relative position") // Позиция вне диапазона структуры
	ErrUseAfterDispose         = errors.New("use after dispose")         // Структура или ссылка уничтожена
	ErrInvalidSplit            = errors.New("invalid split plane")       // Плоскость вне (0, размер оси)
	ErrUnknownCellType         = errors.New("unknown cell type")         // Строковый ID не найден в регистре блоков
)
