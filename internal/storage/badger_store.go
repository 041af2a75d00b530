package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

const badgerKeyPrefix = "structures:"

// BadgerStructureStore хранит записи мира одним JSON значением под ключом
// structures:<world>.
type BadgerStructureStore struct {
	db     *badger.DB
	dbPath string
	mu     sync.RWMutex
	closed bool
}

// NewBadgerStructureStore открывает (или создаёт) базу в dbPath
func NewBadgerStructureStore(dbPath string) (*BadgerStructureStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	storageLog.Info("badger structure store opened at %s", dbPath)
	return &BadgerStructureStore{db: db, dbPath: dbPath}, nil
}

func worldKey(world multiblock.WorldID) []byte {
	return []byte(badgerKeyPrefix + string(world))
}

func (s *BadgerStructureStore) SaveWorld(_ context.Context, world multiblock.WorldID, records []multiblock.StructureRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	if records == nil {
		records = []multiblock.StructureRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal structures of %s: %w", world, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(worldKey(world), data)
	})
	if err != nil {
		return fmt.Errorf("save structures of %s: %w", world, err)
	}
	return nil
}

func (s *BadgerStructureStore) LoadWorld(_ context.Context, world multiblock.WorldID) ([]multiblock.StructureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(worldKey(world))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []multiblock.StructureRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load structures of %s: %w", world, err)
	}

	var records []multiblock.StructureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode structures of %s: %w", world, err)
	}
	return records, nil
}

func (s *BadgerStructureStore) Worlds(_ context.Context) ([]multiblock.WorldID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var out []multiblock.WorldID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			out = append(out, multiblock.WorldID(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *BadgerStructureStore) DeleteWorld(_ context.Context, world multiblock.WorldID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(worldKey(world))
	})
	if err != nil {
		return fmt.Errorf("delete structures of %s: %w", world, err)
	}
	return nil
}

// Close закрывает базу; повторный вызов безопасен
func (s *BadgerStructureStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
