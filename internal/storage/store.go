package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/666daji/Food-Craft-sub000/internal/config"
	"github.com/666daji/Food-Craft-sub000/internal/logging"
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// ErrStoreClosed возвращается при обращении к закрытому хранилищу
var ErrStoreClosed = errors.New("structure store is closed")

var storageLog = logging.GetStorageLogger()

// StructureStore хранит записи структур по мирам. Сохранение мира
// полностью заменяет его предыдущий набор записей.
type StructureStore interface {
	SaveWorld(ctx context.Context, world multiblock.WorldID, records []multiblock.StructureRecord) error
	LoadWorld(ctx context.Context, world multiblock.WorldID) ([]multiblock.StructureRecord, error)
	Worlds(ctx context.Context) ([]multiblock.WorldID, error)
	DeleteWorld(ctx context.Context, world multiblock.WorldID) error
	Close() error
}

// Open создаёт хранилище по конфигурации
func Open(cfg config.StorageConfig) (StructureStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return NewMemoryStructureStore(), nil
	case "badger":
		return NewBadgerStructureStore(filepath.Join(cfg.Path, "structures"))
	case "redis":
		return NewRedisStructureStore(RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	case "maria", "mysql":
		return NewMariaStructureStore(cfg.Maria.DSN)
	case "mongo", "mongodb":
		return NewMongoStructureStore(MongoOptions{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
