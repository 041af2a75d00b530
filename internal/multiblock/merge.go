package multiblock

import (
	"fmt"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// CombineWith сливает структуру с другой; см. Combine
func (s *Structure) CombineWith(other *Structure) (*Structure, error) {
	return Combine(s, other)
}

// Combine сливает две структуры одного мира и одного типа, если они касаются
// или перекрываются ровно по одной оси и совпадают по двум другим.
//
// Оси проверяются в порядке X, Y, Z; побеждает первая подходящая. При любой
// ошибке обе структуры остаются живыми и нетронутыми.
func Combine(a, b *Structure) (*Structure, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("combine with nil structure: %w", ErrIncompatibleMerge)
	}
	if a.IsDisposed() {
		return nil, a.disposedErr("combine")
	}
	if b.IsDisposed() {
		return nil, b.disposedErr("combine")
	}
	if a == b {
		return nil, fmt.Errorf("combine structure #%d with itself: %w", a.id, ErrIncompatibleMerge)
	}
	if a.registry != b.registry || a.world != b.world {
		return nil, fmt.Errorf("combine #%d (%s) with #%d (%s): different worlds: %w",
			a.id, a.world, b.id, b.world, ErrIncompatibleMerge)
	}
	if a.cellType != b.cellType {
		return nil, fmt.Errorf("combine #%d (type %d) with #%d (type %d): %w",
			a.id, a.cellType, b.id, b.cellType, ErrIncompatibleMerge)
	}

	axis, ok := MergeAxis(a.rng, b.rng)
	if !ok {
		return nil, fmt.Errorf("combine %s with %s: not aligned: %w", a.rng, b.rng, ErrIncompatibleMerge)
	}

	union := a.rng.Union(b.rng)
	if exceedsMaxAxis(union) {
		return nil, fmt.Errorf("combine %s with %s -> %s: %w", a.rng, b.rng, union, ErrSizeExceeded)
	}

	a.Dispose()
	b.Dispose()

	merged, err := a.rebuild(union)
	if err != nil {
		return nil, fmt.Errorf("combine #%d with #%d: %w", a.id, b.id, err)
	}

	mbLog.Debug("structures #%d %s and #%d %s merged along %s into #%d %s",
		a.id, a.rng, b.id, b.rng, axis, merged.id, union)
	return merged, nil
}

// mergeable повторяет проверки Combine без побочных эффектов
func mergeable(a, b *Structure) bool {
	if a == nil || b == nil || a == b || a.IsDisposed() || b.IsDisposed() {
		return false
	}
	if a.registry != b.registry || a.world != b.world || a.cellType != b.cellType {
		return false
	}
	if _, ok := MergeAxis(a.rng, b.rng); !ok {
		return false
	}
	return !exceedsMaxAxis(a.rng.Union(b.rng))
}

// MergeAxis ищет ось, вдоль которой два диапазона касаются или перекрываются,
// совпадая по двум другим осям. Порядок проверки: X, Y, Z.
func MergeAxis(a, b PatternRange) (vec.Axis, bool) {
	for _, axis := range vec.Axes {
		if alignedAlong(a, b, axis) {
			return axis, true
		}
	}
	return 0, false
}

func alignedAlong(a, b PatternRange, axis vec.Axis) bool {
	for _, other := range vec.Axes {
		if other == axis {
			continue
		}
		if a.Anchor.Component(other) != b.Anchor.Component(other) || a.Size(other) != b.Size(other) {
			return false
		}
	}

	aStart, aEnd := a.Anchor.Component(axis), a.End().Component(axis)
	bStart, bEnd := b.Anchor.Component(axis), b.End().Component(axis)
	return aStart <= bEnd+1 && bStart <= aEnd+1
}
