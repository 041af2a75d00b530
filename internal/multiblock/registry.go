package multiblock

import (
	"fmt"
	"sort"
	"sync"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// WorldID идентифицирует мир (контекст), в котором живут структуры
type WorldID string

// Registry — таблица живых структур: мир -> якорь -> структура.
//
// Создаётся один раз на процесс и передаётся явно. Мьютекс держится только на
// время операций с картой; обход геометрии выполняется без блокировки.
// Хранилище мира удаляется через CloseWorld при выгрузке мира.
type Registry struct {
	mu     sync.RWMutex
	worlds map[WorldID]map[vec.Vec3]*Structure
	nextID uint64
}

// NewRegistry создаёт пустой регистр
func NewRegistry() *Registry {
	return &Registry{
		worlds: make(map[WorldID]map[vec.Vec3]*Structure),
	}
}

// Register добавляет структуру под её якорем. Уничтоженная запись на том же
// якоре вытесняется; живая — даёт ErrPositionOccupied.
func (r *Registry) Register(s *Structure) error {
	if s == nil {
		return fmt.Errorf("register nil structure: %w", ErrUseAfterDispose)
	}
	if s.IsDisposed() {
		return fmt.Errorf("register structure #%d: %w", s.id, ErrUseAfterDispose)
	}

	anchor := s.rng.Anchor

	r.mu.Lock()
	defer r.mu.Unlock()

	byAnchor, exists := r.worlds[s.world]
	if !exists {
		byAnchor = make(map[vec.Vec3]*Structure)
		r.worlds[s.world] = byAnchor
	}

	if current, occupied := byAnchor[anchor]; occupied {
		if current == s {
			return nil
		}
		if !current.IsDisposed() {
			return fmt.Errorf("anchor %s in world %q: %w", anchor, s.world, ErrPositionOccupied)
		}
		delete(byAnchor, anchor)
	}

	byAnchor[anchor] = s
	return nil
}

// Unregister удаляет структуру, только если под её якорем зарегистрирован
// именно этот экземпляр.
func (r *Registry) Unregister(s *Structure) bool {
	if s == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byAnchor, exists := r.worlds[s.world]
	if !exists {
		return false
	}
	if current, ok := byAnchor[s.rng.Anchor]; !ok || current != s {
		return false
	}
	delete(byAnchor, s.rng.Anchor)
	return true
}

// FindByPosition ищет живую структуру, содержащую позицию: сначала точное
// совпадение якоря, затем линейный проход по всем структурам мира.
// После разбиения с дырами диапазоны могут перекрываться; тогда выбирается
// структура наименьшего объёма, а при равенстве объёмов меньший якорь
// в порядке AllLive. Проход O(число структур).
func (r *Registry) FindByPosition(world WorldID, pos vec.Vec3) *Structure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byAnchor := r.worlds[world]
	if s, ok := byAnchor[pos]; ok && !s.IsDisposed() {
		return s
	}
	var best *Structure
	for _, s := range byAnchor {
		if s.IsDisposed() || !s.rng.Contains(pos) {
			continue
		}
		if best == nil || tighter(s, best) {
			best = s
		}
	}
	return best
}

func tighter(a, b *Structure) bool {
	if va, vb := a.rng.Volume(), b.rng.Volume(); va != vb {
		return va < vb
	}
	return lessVec(a.rng.Anchor, b.rng.Anchor)
}

// FindAt возвращает живую структуру точно по якорю
func (r *Registry) FindAt(world WorldID, anchor vec.Vec3) *Structure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.worlds[world][anchor]; ok && !s.IsDisposed() {
		return s
	}
	return nil
}

// IsOccupied сообщает, покрыта ли позиция живой структурой
func (r *Registry) IsOccupied(world WorldID, pos vec.Vec3) bool {
	return r.FindByPosition(world, pos) != nil
}

// AllLive возвращает живые структуры мира, отсортированные по якорю
func (r *Registry) AllLive(world WorldID) []*Structure {
	r.mu.RLock()
	out := make([]*Structure, 0, len(r.worlds[world]))
	for _, s := range r.worlds[world] {
		if !s.IsDisposed() {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return lessVec(out[i].rng.Anchor, out[j].rng.Anchor)
	})
	return out
}

// Count возвращает число живых структур мира
func (r *Registry) Count(world WorldID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.worlds[world] {
		if !s.IsDisposed() {
			n++
		}
	}
	return n
}

// Worlds возвращает миры, у которых есть записи
func (r *Registry) Worlds() []WorldID {
	r.mu.RLock()
	out := make([]WorldID, 0, len(r.worlds))
	for w := range r.worlds {
		out = append(out, w)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear уничтожает все структуры мира и удаляет его записи
func (r *Registry) Clear(world WorldID) {
	r.mu.Lock()
	byAnchor := r.worlds[world]
	delete(r.worlds, world)
	r.mu.Unlock()

	// Dispose берёт блокировку сам, поэтому вызываем вне её
	for _, s := range byAnchor {
		s.Dispose()
	}
}

// CloseWorld явно освобождает хранилище мира при его выгрузке
func (r *Registry) CloseWorld(world WorldID) {
	r.Clear(world)
}

// SweepDisposed удаляет ещё не вычищенные записи уничтоженных структур
func (r *Registry) SweepDisposed() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for world, byAnchor := range r.worlds {
		for anchor, s := range byAnchor {
			if s.IsDisposed() {
				delete(byAnchor, anchor)
				removed++
			}
		}
		if len(byAnchor) == 0 {
			delete(r.worlds, world)
		}
	}
	return removed
}

func (r *Registry) allocateID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

func lessVec(a, b vec.Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
