package multiblock

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

// DefaultMergeRoundCap — лимит раундов слияния за одно событие
const DefaultMergeRoundCap = 10

// EventKind — тип изменения структуры
type EventKind string

const (
	EventFormed  EventKind = "structure.formed"
	EventSplit   EventKind = "structure.split"
	EventMerged  EventKind = "structure.merged"
	EventRemoved EventKind = "structure.removed"
)

// StructureEvent описывает одно изменение: какие диапазоны исчезли и какие появились
type StructureEvent struct {
	Kind       EventKind      `json:"kind"`
	World      WorldID        `json:"world"`
	CellTypeID string         `json:"cell_type_id"`
	Sources    []PatternRange `json:"sources,omitempty"`
	Results    []PatternRange `json:"results,omitempty"`
}

// EventPublisher получает события об изменениях структур
type EventPublisher interface {
	PublishStructureEvent(ctx context.Context, ev StructureEvent) error
}

// CoordinatorOption настраивает координатор
type CoordinatorOption func(*Coordinator)

// WithMergeRoundCap задаёт лимит раундов слияния (n <= 0 игнорируется)
func WithMergeRoundCap(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.roundCap = n
		}
	}
}

// WithEventPublisher подключает публикацию событий
func WithEventPublisher(p EventPublisher) CoordinatorOption {
	return func(c *Coordinator) { c.publisher = p }
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// Coordinator реагирует на изменения сетки: разбивает и сливает структуры
// до неподвижной точки и раздаёт владельцам ячеек свежие ссылки.
//
// Все точки входа синхронны и вызываются из одного потока мутаций мира.
// Ошибки не выходят наружу: они логируются и считаются в метриках.
type Coordinator struct {
	registry  *Registry
	grid      GridView
	owners    OwnerSource
	roundCap  int
	publisher EventPublisher
	metrics   *Metrics
	tracer    trace.Tracer
}

// NewCoordinator создаёт координатор. owners может быть nil.
func NewCoordinator(reg *Registry, grid GridView, owners OwnerSource, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry: reg,
		grid:     grid,
		owners:   owners,
		roundCap: DefaultMergeRoundCap,
		tracer:   otel.Tracer("multiblock"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry возвращает регистр, с которым работает координатор
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// RebindOwners выдаёт ссылки объектам состояния ячеек всех живых структур
// мира. Нужен после Restore, который строит структуры в обход событий.
func (c *Coordinator) RebindOwners(world WorldID) {
	live := c.registry.AllLive(world)
	c.refreshOwners(world, live, nil)
	c.metrics.setLive(world, len(live))
}

// cycle накапливает изменения одного события
type cycle struct {
	world   WorldID
	touched []PatternRange
	events  []StructureEvent
}

func (cy *cycle) emit(kind EventKind, cellType block.BlockID, sources, results []PatternRange) {
	cy.events = append(cy.events, StructureEvent{
		Kind:       kind,
		World:      cy.world,
		CellTypeID: block.Name(cellType),
		Sources:    sources,
		Results:    results,
	})
}

// OnCellPlaced обрабатывает появление маркерной ячейки cellType в позиции pos.
// Возвращает живые структуры, затронутые событием.
func (c *Coordinator) OnCellPlaced(ctx context.Context, world WorldID, pos vec.Vec3, cellType block.BlockID) []*Structure {
	ctx, span := c.startSpan(ctx, "OnCellPlaced", world, pos)
	defer span.End()
	start := time.Now()

	cy := &cycle{world: world}
	var results []*Structure

	if s := c.registry.FindByPosition(world, pos); s != nil {
		results = append(results, c.splitAndMerge(cy, s)...)
	}

	if c.grid.CellTypeAt(world, pos) == cellType && !c.registry.IsOccupied(world, pos) {
		s, err := Build(c.registry, c.grid, world, cellType, SingleCell(pos))
		if err != nil {
			mbLog.Warn("cell placed at %s in %s: structure not formed: %v", pos, world, err)
		} else {
			c.metrics.incFormed()
			cy.emit(EventFormed, cellType, nil, []PatternRange{s.rng})
			if merged := c.mergeLoop(cy, s); merged != nil {
				results = append(results, merged)
			}
		}
	}

	return c.finish(ctx, span, cy, results, "placed", start)
}

// OnCellRemoved обрабатывает удаление или замену ячейки в pos
func (c *Coordinator) OnCellRemoved(ctx context.Context, world WorldID, pos vec.Vec3) []*Structure {
	ctx, span := c.startSpan(ctx, "OnCellRemoved", world, pos)
	defer span.End()
	start := time.Now()

	cy := &cycle{world: world}
	s := c.registry.FindByPosition(world, pos)
	if s == nil {
		return c.finish(ctx, span, cy, nil, "removed", start)
	}
	return c.finish(ctx, span, cy, c.splitAndMerge(cy, s), "removed", start)
}

// OnNeighborChanged вызывается при изменении соседней ячейки; структура в pos
// перестраивается, только если проверка целостности провалена.
func (c *Coordinator) OnNeighborChanged(ctx context.Context, world WorldID, pos vec.Vec3) []*Structure {
	ctx, span := c.startSpan(ctx, "OnNeighborChanged", world, pos)
	defer span.End()
	start := time.Now()

	cy := &cycle{world: world}
	s := c.registry.FindByPosition(world, pos)
	if s == nil {
		return c.finish(ctx, span, cy, nil, "neighbor", start)
	}
	if s.CheckIntegrity() {
		return c.finish(ctx, span, cy, []*Structure{s}, "neighbor", start)
	}
	c.metrics.incIntegrityFailure()
	return c.finish(ctx, span, cy, c.splitAndMerge(cy, s), "neighbor", start)
}

// splitAndMerge разбивает структуру по валидным ячейкам и сливает каждый
// фрагмент с соседями
func (c *Coordinator) splitAndMerge(cy *cycle, s *Structure) []*Structure {
	source := s.rng
	fragments, err := s.CheckAndSplitIntegrity()
	if err != nil {
		mbLog.Warn("split of %s failed: %v", s, err)
		return nil
	}
	if !s.IsDisposed() {
		return []*Structure{s}
	}

	cy.touched = append(cy.touched, source)
	if len(fragments) == 0 {
		c.metrics.incRemoved()
		cy.emit(EventRemoved, s.cellType, []PatternRange{source}, nil)
		return nil
	}

	c.metrics.incSplit()
	ranges := make([]PatternRange, len(fragments))
	for i, f := range fragments {
		ranges[i] = f.rng
	}
	cy.emit(EventSplit, s.cellType, []PatternRange{source}, ranges)

	out := make([]*Structure, 0, len(fragments))
	for _, f := range fragments {
		if f.IsDisposed() {
			// уже поглощён слиянием предыдущего фрагмента
			continue
		}
		if merged := c.mergeLoop(cy, f); merged != nil {
			out = append(out, merged)
		}
	}
	return out
}

// mergeLoop сливает структуру с соседями раунд за раундом, пока раунд не
// пройдёт без слияний. Лимит считается достигнутым, только если после
// roundCap слияний остался сосед, с которым слияние возможно.
func (c *Coordinator) mergeLoop(cy *cycle, s *Structure) *Structure {
	current := s
	for round := 0; ; round++ {
		candidates := c.mergeCandidates(current)
		if round >= c.roundCap {
			if slices.ContainsFunc(candidates, func(o *Structure) bool { return mergeable(current, o) }) {
				mbLog.Warn("merge round cap %d reached for %s, stopping this cycle", c.roundCap, current)
				c.metrics.incRoundCap()
			}
			return current
		}

		merged := false
		for _, candidate := range candidates {
			a, b := current.rng, candidate.rng
			next, err := Combine(current, candidate)
			if err != nil {
				if !errors.Is(err, ErrIncompatibleMerge) && !errors.Is(err, ErrSizeExceeded) {
					mbLog.Warn("merge %s with %s: %v", a, b, err)
				}
				if current.IsDisposed() {
					return nil
				}
				continue
			}

			cy.touched = append(cy.touched, a, b)
			c.metrics.incMerge()
			cy.emit(EventMerged, next.cellType, []PatternRange{a, b}, []PatternRange{next.rng})
			current = next
			merged = true
			break
		}

		if !merged {
			return current
		}
	}
}

// mergeCandidates собирает живые структуры того же типа в шести слоях,
// прилегающих к граням диапазона. Порядок: X-, X+, Y-, Y+, Z-, Z+.
func (c *Coordinator) mergeCandidates(s *Structure) []*Structure {
	rng := s.rng
	seen := make(map[*Structure]struct{})
	var out []*Structure

	for _, axis := range vec.Axes {
		for _, coord := range [2]int{rng.Anchor.Component(axis) - 1, rng.End().Component(axis) + 1} {
			slab := rng.WithSize(axis, 1)
			slab.Anchor = rng.Anchor.WithComponent(axis, coord)

			slab.ForEach(func(p vec.Vec3) bool {
				if c.grid.CellTypeAt(s.world, p) != s.cellType {
					return true
				}
				other := c.registry.FindByPosition(s.world, p)
				if other == nil || other == s || other.cellType != s.cellType {
					return true
				}
				if _, dup := seen[other]; !dup {
					seen[other] = struct{}{}
					out = append(out, other)
				}
				return true
			})
		}
	}
	return out
}

// finish обновляет владельцев, метрики и публикует события цикла
func (c *Coordinator) finish(ctx context.Context, span trace.Span, cy *cycle, results []*Structure, event string, start time.Time) []*Structure {
	live := make([]*Structure, 0, len(results))
	seen := make(map[*Structure]struct{}, len(results))
	for _, s := range results {
		if s.IsDisposed() {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		live = append(live, s)
	}

	c.refreshOwners(cy.world, live, cy.touched)
	c.metrics.setLive(cy.world, c.registry.Count(cy.world))
	c.metrics.observe(event, time.Since(start).Seconds())

	if c.publisher != nil {
		for _, ev := range cy.events {
			if err := c.publisher.PublishStructureEvent(ctx, ev); err != nil {
				mbLog.Warn("publish %s event for %s: %v", ev.Kind, ev.World, err)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("multiblock.results", len(live)),
		attribute.Int("multiblock.changes", len(cy.events)),
	)
	return live
}

// refreshOwners раздаёт свежие ссылки владельцам ячеек живых структур и
// обнуляет устаревшие ссылки в позициях, которые больше никем не покрыты
func (c *Coordinator) refreshOwners(world WorldID, live []*Structure, touched []PatternRange) {
	if c.owners == nil {
		return
	}

	covered := make(map[vec.Vec3]struct{})
	for _, s := range live {
		s.rng.ForEach(func(p vec.Vec3) bool {
			covered[p] = struct{}{}
			if c.grid.CellTypeAt(world, p) != s.cellType {
				return true
			}
			owner := c.owners.OwnerAt(world, p)
			if owner == nil {
				return true
			}

			old := owner.Reference()
			if lr, ok := old.(*LiveReference); ok && !lr.IsDisposed() && lr.structure == s {
				return true
			}
			ref, err := NewLiveReference(s, p.Sub(s.rng.Anchor))
			if err != nil {
				mbLog.Warn("reference for owner at %s: %v", p, err)
				return true
			}
			owner.SetReference(ref)
			owner.OnStructureChanged(old, ref)
			if old != nil {
				old.Dispose()
			}
			return true
		})
	}

	for _, rng := range touched {
		rng.ForEach(func(p vec.Vec3) bool {
			if _, ok := covered[p]; ok {
				return true
			}
			owner := c.owners.OwnerAt(world, p)
			if owner == nil {
				return true
			}
			if old := owner.Reference(); old != nil && old.IsDisposed() {
				owner.SetReference(nil)
				owner.OnStructureChanged(old, nil)
			}
			return true
		})
	}
}

func (c *Coordinator) startSpan(ctx context.Context, name string, world WorldID, pos vec.Vec3) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.tracer.Start(ctx, "multiblock."+name, trace.WithAttributes(
		attribute.String("multiblock.world", string(world)),
		attribute.String("multiblock.pos", pos.String()),
	))
}
