package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// OwnerBinder выдаёт ссылки ячейкам восстановленных структур (координатор)
type OwnerBinder interface {
	RebindOwners(world multiblock.WorldID)
}

// PersistentStore связывает регистр структур с хранилищем записей
type PersistentStore struct {
	store    StructureStore
	registry *multiblock.Registry
	grid     multiblock.GridView
	binder   OwnerBinder

	// Миры, которые этот процесс загружал или сохранял. SaveAll перезаписывает их,
	// даже если регистр уже забыл мир после SweepDisposed.
	mu    sync.Mutex
	known map[multiblock.WorldID]struct{}
}

// NewPersistentStore создаёт связку; binder может быть nil
func NewPersistentStore(store StructureStore, registry *multiblock.Registry, grid multiblock.GridView, binder OwnerBinder) *PersistentStore {
	return &PersistentStore{
		store:    store,
		registry: registry,
		grid:     grid,
		binder:   binder,
		known:    make(map[multiblock.WorldID]struct{}),
	}
}

func (p *PersistentStore) remember(world multiblock.WorldID) {
	p.mu.Lock()
	p.known[world] = struct{}{}
	p.mu.Unlock()
}

// worlds возвращает миры регистра вместе с уже известными, по порядку
func (p *PersistentStore) worlds() []multiblock.WorldID {
	p.mu.Lock()
	set := maps.Clone(p.known)
	p.mu.Unlock()
	for _, w := range p.registry.Worlds() {
		set[w] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Store возвращает нижележащее хранилище
func (p *PersistentStore) Store() StructureStore {
	return p.store
}

// Save сохраняет живые структуры мира, заменяя прежние записи
func (p *PersistentStore) Save(ctx context.Context, world multiblock.WorldID) (int, error) {
	records := multiblock.Snapshot(p.registry, world)
	if err := p.store.SaveWorld(ctx, world, records); err != nil {
		return 0, err
	}
	p.remember(world)
	storageLog.Debug("saved %d structures of %s", len(records), world)
	return len(records), nil
}

// SaveAll сохраняет миры регистра и все миры, ранее загруженные или сохранённые
// через этот PersistentStore: мир без живых структур получает пустой список
// записей. Ошибки отдельных миров собираются.
func (p *PersistentStore) SaveAll(ctx context.Context) (int, error) {
	total := 0
	var errs []error
	for _, world := range p.worlds() {
		n, err := p.Save(ctx, world)
		if err != nil {
			errs = append(errs, fmt.Errorf("world %s: %w", world, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// Load восстанавливает структуры мира из хранилища
func (p *PersistentStore) Load(ctx context.Context, world multiblock.WorldID) (int, error) {
	records, err := p.store.LoadWorld(ctx, world)
	if err != nil {
		return 0, err
	}
	p.remember(world)
	n, err := multiblock.Restore(p.registry, p.grid, world, records)
	if err != nil {
		return n, err
	}
	if p.binder != nil {
		p.binder.RebindOwners(world)
	}
	return n, nil
}

// LoadAll восстанавливает все миры, известные хранилищу
func (p *PersistentStore) LoadAll(ctx context.Context) (int, error) {
	worlds, err := p.store.Worlds(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	var errs []error
	for _, world := range worlds {
		n, err := p.Load(ctx, world)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("world %s: %w", world, err))
		}
	}
	storageLog.Info("loaded %d structures from %d worlds", total, len(worlds))
	return total, errors.Join(errs...)
}
