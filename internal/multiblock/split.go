package multiblock

import (
	"fmt"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// CheckAndSplitIntegrity пересобирает структуру по ячейкам, которые всё ещё
// совпадают с однородным типом.
//
// Целая структура остаётся нетронутой, результат пуст. Иначе валидные ячейки
// делятся на компоненты связности (соседство по граням), для каждой строится
// структура по ограничивающему параллелепипеду, исходная уничтожается.
// Если валидных ячеек нет, структура просто исчезает.
func (s *Structure) CheckAndSplitIntegrity() ([]*Structure, error) {
	if s.IsDisposed() {
		return nil, s.disposedErr("split")
	}

	order, valid := s.validCells()
	if len(order) == s.rng.Volume() {
		return nil, nil
	}

	components := connectedComponents(order, valid)
	boxes := make([]PatternRange, 0, len(components))
	for _, comp := range components {
		box, _ := BoundingBox(comp)
		if !isSolid(box, valid) {
			// Параллелепипед с дырами всё равно регистрируется: потребители не
			// должны считать такую структуру сплошной.
			mbLog.Warn("structure #%d split: fragment %s has holes (%d of %d cells valid)",
				s.id, box, len(comp), box.Volume())
		}
		boxes = append(boxes, box)
	}

	mbLog.Debug("structure #%d %s lost integrity: %d valid cells, %d fragments",
		s.id, s.rng, len(order), len(boxes))

	s.Dispose()

	fragments, err := s.rebuildAll(boxes)
	if err != nil {
		// Параллелепипед с дырами может делить якорь с другим фрагментом. Тогда
		// валидные ячейки покрываются сплошными непересекающимися блоками.
		solid := solidBoxes(order, valid)
		mbLog.Warn("structure #%d split: %v; using %d solid fragments instead", s.id, err, len(solid))
		fragments = fragments[:0]
		for _, box := range solid {
			fragment, err := s.rebuild(box)
			if err != nil {
				mbLog.Warn("structure #%d split: fragment %s skipped: %v", s.id, box, err)
				continue
			}
			fragments = append(fragments, fragment)
		}
	}
	return fragments, nil
}

// rebuildAll регистрирует все диапазоны или ни одного
func (s *Structure) rebuildAll(boxes []PatternRange) ([]*Structure, error) {
	out := make([]*Structure, 0, len(boxes))
	for _, box := range boxes {
		fragment, err := s.rebuild(box)
		if err != nil {
			for _, built := range out {
				built.Dispose()
			}
			return out[:0], fmt.Errorf("fragment %s: %w", box, err)
		}
		out = append(out, fragment)
	}
	return out, nil
}

// solidBoxes покрывает ячейки непересекающимися сплошными параллелепипедами.
// Якорем каждого блока становится первая непокрытая ячейка в порядке order,
// блок растёт по X, затем по Y, затем по Z, пока следующий слой целиком свободен.
func solidBoxes(order []vec.Vec3, cells map[vec.Vec3]struct{}) []PatternRange {
	covered := make(map[vec.Vec3]struct{}, len(cells))
	free := func(p vec.Vec3) bool {
		_, in := cells[p]
		_, used := covered[p]
		return in && !used
	}
	layerFree := func(layer PatternRange) bool {
		ok := true
		layer.ForEach(func(p vec.Vec3) bool {
			ok = free(p)
			return ok
		})
		return ok
	}

	var boxes []PatternRange
	for _, start := range order {
		if !free(start) {
			continue
		}
		box := SingleCell(start)
		for _, axis := range vec.Axes {
			for {
				next := box.WithSize(axis, 1)
				next.Anchor = box.Anchor.WithComponent(axis, box.End().Component(axis)+1)
				if !layerFree(next) {
					break
				}
				box = box.WithSize(axis, box.Size(axis)+1)
			}
		}
		box.ForEach(func(p vec.Vec3) bool {
			covered[p] = struct{}{}
			return true
		})
		boxes = append(boxes, box)
	}
	return boxes
}

// validCells возвращает валидные ячейки в порядке обхода диапазона и их множество
func (s *Structure) validCells() ([]vec.Vec3, map[vec.Vec3]struct{}) {
	order := make([]vec.Vec3, 0, s.rng.Volume())
	set := make(map[vec.Vec3]struct{}, s.rng.Volume())
	s.rng.ForEach(func(p vec.Vec3) bool {
		if s.grid.CellTypeAt(s.world, p) == s.cellType {
			order = append(order, p)
			set[p] = struct{}{}
		}
		return true
	})
	return order, set
}

// connectedComponents делает обход в ширину по множеству позиций с соседством по
// граням. Компоненты возвращаются в порядке первой встреченной ячейки.
func connectedComponents(order []vec.Vec3, cells map[vec.Vec3]struct{}) [][]vec.Vec3 {
	visited := make(map[vec.Vec3]struct{}, len(cells))
	var components [][]vec.Vec3

	for _, start := range order {
		if _, seen := visited[start]; seen {
			continue
		}

		visited[start] = struct{}{}
		queue := []vec.Vec3{start}
		var component []vec.Vec3

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			component = append(component, current)

			for _, next := range current.Neighbors() {
				if _, ok := cells[next]; !ok {
					continue
				}
				if _, seen := visited[next]; seen {
					continue
				}
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}

		components = append(components, component)
	}
	return components
}

// isSolid проверяет, что каждая позиция диапазона входит в множество
func isSolid(box PatternRange, cells map[vec.Vec3]struct{}) bool {
	solid := true
	box.ForEach(func(p vec.Vec3) bool {
		if _, ok := cells[p]; !ok {
			solid = false
		}
		return solid
	})
	return solid
}

// SplitAlongPlane режет структуру плоскостью, перпендикулярной оси, на
// расстоянии position от якоря. Допустимо 0 < position < размер оси; иначе
// структура остаётся нетронутой.
func (s *Structure) SplitAlongPlane(axis vec.Axis, position int) (*Structure, *Structure, error) {
	if s.IsDisposed() {
		return nil, nil, s.disposedErr("plane split")
	}

	size := s.rng.Size(axis)
	if position <= 0 || position >= size {
		return nil, nil, fmt.Errorf("split %s along %s at %d: %w", s.rng, axis, position, ErrInvalidSplit)
	}

	first := s.rng.WithSize(axis, position)
	second := s.rng.WithSize(axis, size-position)
	second.Anchor = s.rng.Anchor.WithComponent(axis, s.rng.Anchor.Component(axis)+position)

	s.Dispose()

	a, err := s.rebuild(first)
	if err != nil {
		return nil, nil, fmt.Errorf("split structure #%d: %w", s.id, err)
	}
	b, err := s.rebuild(second)
	if err != nil {
		a.Dispose()
		return nil, nil, fmt.Errorf("split structure #%d: %w", s.id, err)
	}

	mbLog.Debug("structure #%d split along %s at %d: %s + %s", s.id, axis, position, first, second)
	return a, b, nil
}
