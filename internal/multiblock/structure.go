package multiblock

import (
	"fmt"
	"sync/atomic"

	"github.com/666daji/Food-Craft-sub000/internal/logging"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

const (
	// MaxAxis — предельный размер структуры по каждой оси
	MaxAxis = 10
	// MaxVolume — предельный объём (MaxAxis^3)
	MaxVolume = MaxAxis * MaxAxis * MaxAxis
)

var mbLog = logging.GetMultiblockLogger()

// GridView — доступ только на чтение к типам ячеек мира.
// Вызывается синхронно, до MaxVolume раз за операцию.
type GridView interface {
	CellTypeAt(world WorldID, pos vec.Vec3) block.BlockID
}

// Structure — отслеживаемый кластер однородных ячеек.
//
// Геометрия неизменна после создания: разбиение и слияние уничтожают исходную
// структуру и создают новые. Флаг disposed атомарный, поэтому читатели из
// других потоков (REST) могут безопасно проверять живость.
type Structure struct {
	id       uint64
	registry *Registry
	grid     GridView
	world    WorldID
	cellType block.BlockID
	rng      PatternRange
	disposed atomic.Bool
}

// Build проверяет размеры, создаёт структуру и регистрирует её.
// При ошибке ничего не регистрируется.
func Build(reg *Registry, grid GridView, world WorldID, cellType block.BlockID, rng PatternRange) (*Structure, error) {
	if reg == nil || grid == nil {
		return nil, fmt.Errorf("build structure: registry and grid are required")
	}
	if !rng.Valid() {
		return nil, fmt.Errorf("build structure %s: %w", rng, ErrInvalidDimensions)
	}
	if exceedsMaxAxis(rng) {
		return nil, fmt.Errorf("build structure %s (max %d per axis): %w", rng, MaxAxis, ErrSizeExceeded)
	}

	s := &Structure{
		id:       reg.allocateID(),
		registry: reg,
		grid:     grid,
		world:    world,
		cellType: cellType,
		rng:      rng,
	}

	if err := reg.Register(s); err != nil {
		s.disposed.Store(true)
		return nil, err
	}

	mbLog.Trace("structure #%d built: world=%s type=%d range=%s", s.id, world, cellType, rng)
	return s, nil
}

func exceedsMaxAxis(r PatternRange) bool {
	return r.Width > MaxAxis || r.Height > MaxAxis || r.Depth > MaxAxis
}

// WithTemporaryStructure строит структуру, вызывает fn и уничтожает структуру
// на любом пути выхода, включая ошибки и панику в fn.
func WithTemporaryStructure(reg *Registry, grid GridView, world WorldID, cellType block.BlockID, rng PatternRange, fn func(*Structure) error) error {
	s, err := Build(reg, grid, world, cellType, rng)
	if err != nil {
		return err
	}
	defer s.Dispose()

	return fn(s)
}

// ID возвращает порядковый номер экземпляра внутри регистра (для логов и событий)
func (s *Structure) ID() uint64 { return s.id }

// World возвращает мир структуры
func (s *Structure) World() WorldID { return s.world }

// CellType возвращает однородный тип ячеек
func (s *Structure) CellType() block.BlockID { return s.cellType }

// IsDisposed сообщает, уничтожена ли структура
func (s *Structure) IsDisposed() bool {
	return s == nil || s.disposed.Load()
}

// Dispose уничтожает структуру и снимает её с регистрации. Повторный вызов безопасен.
func (s *Structure) Dispose() {
	if s == nil || !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.registry.Unregister(s)
	mbLog.Trace("structure #%d disposed: %s", s.id, s.rng)
}

// Range возвращает геометрию живой структуры
func (s *Structure) Range() (PatternRange, error) {
	if s.IsDisposed() {
		return PatternRange{}, s.disposedErr("range")
	}
	return s.rng, nil
}

// Anchor возвращает якорь живой структуры
func (s *Structure) Anchor() (vec.Vec3, error) {
	if s.IsDisposed() {
		return vec.Vec3{}, s.disposedErr("anchor")
	}
	return s.rng.Anchor, nil
}

// Volume возвращает объём живой структуры
func (s *Structure) Volume() (int, error) {
	if s.IsDisposed() {
		return 0, s.disposedErr("volume")
	}
	return s.rng.Volume(), nil
}

// Contains сообщает, покрывает ли живая структура позицию
func (s *Structure) Contains(pos vec.Vec3) bool {
	return !s.IsDisposed() && s.rng.Contains(pos)
}

// CheckIntegrity сверяет все ячейки диапазона с однородным типом.
// Ничего не меняет; для уничтоженной структуры возвращает false.
func (s *Structure) CheckIntegrity() bool {
	if s.IsDisposed() {
		return false
	}

	mismatches := 0
	s.rng.ForEach(func(p vec.Vec3) bool {
		if s.grid.CellTypeAt(s.world, p) != s.cellType {
			mismatches++
		}
		return true
	})

	if mismatches > 0 {
		mbLog.Debug("structure #%d integrity check failed: %d/%d cells mismatch", s.id, mismatches, s.rng.Volume())
		return false
	}
	return true
}

// Record возвращает плоскую сериализуемую проекцию структуры
func (s *Structure) Record() (StructureRecord, error) {
	if s.IsDisposed() {
		return StructureRecord{}, s.disposedErr("record")
	}
	return StructureRecord{
		Anchor:     s.rng.Anchor,
		CellTypeID: block.Name(s.cellType),
		RangeStart: s.rng.Anchor,
		Width:      s.rng.Width,
		Height:     s.rng.Height,
		Depth:      s.rng.Depth,
	}, nil
}

func (s *Structure) String() string {
	if s == nil {
		return "structure(nil)"
	}
	state := "live"
	if s.IsDisposed() {
		state = "disposed"
	}
	return fmt.Sprintf("structure#%d[%s %s type=%d %s]", s.id, s.world, s.rng, s.cellType, state)
}

func (s *Structure) disposedErr(op string) error {
	if s == nil {
		return fmt.Errorf("%s of nil structure: %w", op, ErrUseAfterDispose)
	}
	return fmt.Errorf("%s of structure #%d: %w", op, s.id, ErrUseAfterDispose)
}

// rebuild создаёт структуру того же мира и типа с новой геометрией
func (s *Structure) rebuild(rng PatternRange) (*Structure, error) {
	return Build(s.registry, s.grid, s.world, s.cellType, rng)
}
