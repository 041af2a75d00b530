package multiblock

import (
	"fmt"
	"sync/atomic"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// Reference указывает на одну ячейку внутри структуры по относительной позиции.
//
// Две реализации: LiveReference держит указатель на структуру и годится там,
// где регистр доступен; DetachedReference хранит денормализованный снимок и
// используется в контекстах только для чтения (отображение, клиенты).
// Код, которому нужен лишь снимок, должен зависеть от этого интерфейса.
type Reference interface {
	MatchesCellType(t block.BlockID) bool
	// IsMasterCell: ссылка указывает на якорную ячейку (относительная позиция 0,0,0)
	IsMasterCell() bool
	MasterWorldPosition() (vec.Vec3, error)
	WorldPosition() (vec.Vec3, error)
	RelativePosition() (vec.Vec3, error)
	BaseCellType() (block.BlockID, error)
	Volume() (int, error)
	Dimensions() (width, height, depth int, err error)
	ContainsWorldPosition(p vec.Vec3) bool
	CheckIntegrity() bool
	IsDisposed() bool
	Dispose()
	Record() (ReferenceRecord, error)
}

var (
	_ Reference = (*LiveReference)(nil)
	_ Reference = (*DetachedReference)(nil)
)

// LiveReference — ссылка с прямым доступом к структуре
type LiveReference struct {
	structure *Structure
	rel       vec.Vec3
	worldPos  vec.Vec3
	disposed  atomic.Bool
}

// NewLiveReference создаёт ссылку на ячейку rel живой структуры
func NewLiveReference(s *Structure, rel vec.Vec3) (*LiveReference, error) {
	if s.IsDisposed() {
		return nil, s.disposedErr("reference")
	}
	if !s.rng.ContainsRelative(rel) {
		return nil, fmt.Errorf("relative %s outside %s: %w", rel, s.rng, ErrInvalidRelativePosition)
	}
	return &LiveReference{
		structure: s,
		rel:       rel,
		worldPos:  s.rng.Anchor.Add(rel),
	}, nil
}

// NewLiveReferenceAt создаёт ссылку по мировой позиции внутри структуры
func NewLiveReferenceAt(s *Structure, worldPos vec.Vec3) (*LiveReference, error) {
	if s.IsDisposed() {
		return nil, s.disposedErr("reference")
	}
	return NewLiveReference(s, worldPos.Sub(s.rng.Anchor))
}

// Structure возвращает структуру живой ссылки
func (r *LiveReference) Structure() (*Structure, error) {
	if err := r.check("structure"); err != nil {
		return nil, err
	}
	return r.structure, nil
}

// IsDisposed: собственный флаг или уничтоженная структура
func (r *LiveReference) IsDisposed() bool {
	return r == nil || r.disposed.Load() || r.structure.IsDisposed()
}

// Dispose помечает ссылку устаревшей; структуру не трогает
func (r *LiveReference) Dispose() {
	if r != nil {
		r.disposed.Store(true)
	}
}

func (r *LiveReference) check(op string) error {
	if r.IsDisposed() {
		return fmt.Errorf("%s of live reference: %w", op, ErrUseAfterDispose)
	}
	return nil
}

func (r *LiveReference) MatchesCellType(t block.BlockID) bool {
	return !r.IsDisposed() && r.structure.cellType == t
}

func (r *LiveReference) IsMasterCell() bool {
	return !r.IsDisposed() && r.rel == (vec.Vec3{})
}

func (r *LiveReference) MasterWorldPosition() (vec.Vec3, error) {
	if err := r.check("master position"); err != nil {
		return vec.Vec3{}, err
	}
	return r.structure.rng.Anchor, nil
}

func (r *LiveReference) WorldPosition() (vec.Vec3, error) {
	if err := r.check("world position"); err != nil {
		return vec.Vec3{}, err
	}
	return r.worldPos, nil
}

func (r *LiveReference) RelativePosition() (vec.Vec3, error) {
	if err := r.check("relative position"); err != nil {
		return vec.Vec3{}, err
	}
	return r.rel, nil
}

func (r *LiveReference) BaseCellType() (block.BlockID, error) {
	if err := r.check("cell type"); err != nil {
		return 0, err
	}
	return r.structure.cellType, nil
}

func (r *LiveReference) Volume() (int, error) {
	if err := r.check("volume"); err != nil {
		return 0, err
	}
	return r.structure.rng.Volume(), nil
}

func (r *LiveReference) Dimensions() (int, int, int, error) {
	if err := r.check("dimensions"); err != nil {
		return 0, 0, 0, err
	}
	rng := r.structure.rng
	return rng.Width, rng.Height, rng.Depth, nil
}

func (r *LiveReference) ContainsWorldPosition(p vec.Vec3) bool {
	return !r.IsDisposed() && r.structure.rng.Contains(p)
}

// CheckIntegrity делегирует проверку живой структуре
func (r *LiveReference) CheckIntegrity() bool {
	return !r.IsDisposed() && r.structure.CheckIntegrity()
}

// Record возвращает запись для передачи; размеры не заполняются, сервер берёт их из регистра
func (r *LiveReference) Record() (ReferenceRecord, error) {
	if err := r.check("record"); err != nil {
		return ReferenceRecord{}, err
	}
	return ReferenceRecord{
		MasterPosition:   r.structure.rng.Anchor,
		RelativePosition: r.rel,
		BaseCellTypeID:   block.Name(r.structure.cellType),
	}, nil
}

// DetachedReference — снимок ссылки без доступа к структуре
type DetachedReference struct {
	anchor     vec.Vec3
	rel        vec.Vec3
	worldPos   vec.Vec3
	cellType   block.BlockID
	cellTypeID string
	rng        PatternRange
	disposed   atomic.Bool
}

// NewDetachedReference строит снимок напрямую из геометрии и типа
func NewDetachedReference(anchor, rel vec.Vec3, cellType block.BlockID, width, height, depth int) (*DetachedReference, error) {
	rng, err := NewPatternRange(anchor, width, height, depth)
	if err != nil {
		return nil, err
	}
	if !rng.ContainsRelative(rel) {
		return nil, fmt.Errorf("relative %s outside %s: %w", rel, rng, ErrInvalidRelativePosition)
	}
	return &DetachedReference{
		anchor:     anchor,
		rel:        rel,
		worldPos:   anchor.Add(rel),
		cellType:   cellType,
		cellTypeID: block.Name(cellType),
		rng:        rng,
	}, nil
}

// DetachedFromRecord восстанавливает снимок из сериализованной записи
func DetachedFromRecord(rec ReferenceRecord) (*DetachedReference, error) {
	cellType, ok := block.ByName(rec.BaseCellTypeID)
	if !ok {
		return nil, fmt.Errorf("reference cell type %q: %w", rec.BaseCellTypeID, ErrUnknownCellType)
	}
	ref, err := NewDetachedReference(rec.MasterPosition, rec.RelativePosition, cellType,
		rec.StructureWidth, rec.StructureHeight, rec.StructureDepth)
	if err != nil {
		return nil, err
	}
	ref.cellTypeID = rec.BaseCellTypeID
	return ref, nil
}

// Detach копирует геометрию и тип живой ссылки в снимок
func Detach(live *LiveReference) (*DetachedReference, error) {
	if err := live.check("detach"); err != nil {
		return nil, err
	}
	rng := live.structure.rng
	return NewDetachedReference(rng.Anchor, live.rel, live.structure.cellType, rng.Width, rng.Height, rng.Depth)
}

func (r *DetachedReference) IsDisposed() bool {
	return r == nil || r.disposed.Load()
}

func (r *DetachedReference) Dispose() {
	if r != nil {
		r.disposed.Store(true)
	}
}

func (r *DetachedReference) check(op string) error {
	if r.IsDisposed() {
		return fmt.Errorf("%s of detached reference: %w", op, ErrUseAfterDispose)
	}
	return nil
}

func (r *DetachedReference) MatchesCellType(t block.BlockID) bool {
	return !r.IsDisposed() && r.cellType == t
}

func (r *DetachedReference) IsMasterCell() bool {
	return !r.IsDisposed() && r.rel == (vec.Vec3{})
}

func (r *DetachedReference) MasterWorldPosition() (vec.Vec3, error) {
	if err := r.check("master position"); err != nil {
		return vec.Vec3{}, err
	}
	return r.anchor, nil
}

func (r *DetachedReference) WorldPosition() (vec.Vec3, error) {
	if err := r.check("world position"); err != nil {
		return vec.Vec3{}, err
	}
	return r.worldPos, nil
}

func (r *DetachedReference) RelativePosition() (vec.Vec3, error) {
	if err := r.check("relative position"); err != nil {
		return vec.Vec3{}, err
	}
	return r.rel, nil
}

func (r *DetachedReference) BaseCellType() (block.BlockID, error) {
	if err := r.check("cell type"); err != nil {
		return 0, err
	}
	return r.cellType, nil
}

func (r *DetachedReference) Volume() (int, error) {
	if err := r.check("volume"); err != nil {
		return 0, err
	}
	return r.rng.Volume(), nil
}

func (r *DetachedReference) Dimensions() (int, int, int, error) {
	if err := r.check("dimensions"); err != nil {
		return 0, 0, 0, err
	}
	return r.rng.Width, r.rng.Height, r.rng.Depth, nil
}

func (r *DetachedReference) ContainsWorldPosition(p vec.Vec3) bool {
	return !r.IsDisposed() && r.rng.Contains(p)
}

// CheckIntegrity всегда true: без доступа к сетке проверить нечего.
// Это ограничение снимка, а не ошибка.
func (r *DetachedReference) CheckIntegrity() bool {
	return true
}

// Record возвращает полную запись, включая размеры структуры
func (r *DetachedReference) Record() (ReferenceRecord, error) {
	if err := r.check("record"); err != nil {
		return ReferenceRecord{}, err
	}
	return ReferenceRecord{
		MasterPosition:   r.anchor,
		RelativePosition: r.rel,
		BaseCellTypeID:   r.cellTypeID,
		StructureWidth:   r.rng.Width,
		StructureHeight:  r.rng.Height,
		StructureDepth:   r.rng.Depth,
	}, nil
}

// ResolveLive превращает запись обратно в живую ссылку через регистр
func ResolveLive(reg *Registry, world WorldID, rec ReferenceRecord) (*LiveReference, error) {
	s := reg.FindAt(world, rec.MasterPosition)
	if s == nil {
		return nil, fmt.Errorf("no live structure at %s in world %q: %w", rec.MasterPosition, world, ErrUseAfterDispose)
	}
	if name := block.Name(s.cellType); name != rec.BaseCellTypeID {
		return nil, fmt.Errorf("structure at %s is %q, record says %q: %w",
			rec.MasterPosition, name, rec.BaseCellTypeID, ErrUnknownCellType)
	}
	return NewLiveReference(s, rec.RelativePosition)
}
