package multiblock

import (
	"errors"
	"fmt"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// StructureRecord — плоская сохраняемая проекция структуры
type StructureRecord struct {
	Anchor     vec.Vec3 `json:"anchor" bson:"anchor"`
	CellTypeID string   `json:"cell_type_id" bson:"cell_type_id"`
	RangeStart vec.Vec3 `json:"range_start" bson:"range_start"`
	Width      int      `json:"width" bson:"width"`
	Height     int      `json:"height" bson:"height"`
	Depth      int      `json:"depth" bson:"depth"`
}

// Range восстанавливает диапазон записи
func (r StructureRecord) Range() (PatternRange, error) {
	return NewPatternRange(r.RangeStart, r.Width, r.Height, r.Depth)
}

// Snapshot собирает записи всех живых структур мира (порядок по якорю)
func Snapshot(reg *Registry, world WorldID) []StructureRecord {
	live := reg.AllLive(world)
	out := make([]StructureRecord, 0, len(live))
	for _, s := range live {
		rec, err := s.Record()
		if err != nil {
			// уничтожена между AllLive и Record
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Restore строит структуры по записям. Записи с неизвестным типом или
// неудачной сборкой пропускаются с предупреждением. Возвращает число
// восстановленных структур.
func Restore(reg *Registry, grid GridView, world WorldID, records []StructureRecord) (int, error) {
	if reg == nil || grid == nil {
		return 0, errors.New("restore structures: registry and grid are required")
	}

	restored := 0
	for i, rec := range records {
		if err := restoreOne(reg, grid, world, rec); err != nil {
			mbLog.Warn("restore %s: record %d skipped: %v", world, i, err)
			continue
		}
		restored++
	}

	mbLog.Info("restored %d/%d structures in world %s", restored, len(records), world)
	return restored, nil
}

func restoreOne(reg *Registry, grid GridView, world WorldID, rec StructureRecord) error {
	cellType, ok := block.ByName(rec.CellTypeID)
	if !ok {
		return fmt.Errorf("cell type %q: %w", rec.CellTypeID, ErrUnknownCellType)
	}
	rng, err := rec.Range()
	if err != nil {
		return err
	}
	if rec.Anchor != rng.Anchor {
		return fmt.Errorf("anchor %s differs from range start %s: %w", rec.Anchor, rng.Anchor, ErrInvalidDimensions)
	}
	for _, other := range reg.AllLive(world) {
		if other.rng.Intersects(rng) {
			return fmt.Errorf("range %s overlaps %s: %w", rng, other, ErrPositionOccupied)
		}
	}
	_, err = Build(reg, grid, world, cellType, rng)
	return err
}
