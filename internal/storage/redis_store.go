package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// RedisOptions содержит настройки подключения к Redis
type RedisOptions struct {
	Addr      string // Адрес Redis сервера
	Password  string // Пароль (пустой если не требуется)
	DB        int    // Номер базы данных
	KeyPrefix string // Префикс ключей миров
}

// RedisStructureStore хранит структуры мира в хэше <prefix><world>:
// поле хранит якорь структуры "x:y:z", значение хранит JSON записи.
type RedisStructureStore struct {
	client    *redis.Client
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// NewRedisStructureStore подключается к Redis и проверяет соединение
func NewRedisStructureStore(opts RedisOptions) (*RedisStructureStore, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "foodcraft:structures:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	storageLog.Info("redis structure store connected to %s", opts.Addr)
	return &RedisStructureStore{client: client, keyPrefix: opts.KeyPrefix}, nil
}

func (r *RedisStructureStore) key(world multiblock.WorldID) string {
	return r.keyPrefix + string(world)
}

func anchorField(rec multiblock.StructureRecord) string {
	return fmt.Sprintf("%d:%d:%d", rec.Anchor.X, rec.Anchor.Y, rec.Anchor.Z)
}

// SaveWorld заменяет хэш мира одной транзакцией
func (r *RedisStructureStore) SaveWorld(ctx context.Context, world multiblock.WorldID, records []multiblock.StructureRecord) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrStoreClosed
	}

	fields := make(map[string]interface{}, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal structure %s: %w", anchorField(rec), err)
		}
		fields[anchorField(rec)] = data
	}

	key := r.key(world)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save structures of %s to redis: %w", world, err)
	}
	return nil
}

func (r *RedisStructureStore) LoadWorld(ctx context.Context, world multiblock.WorldID) ([]multiblock.StructureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrStoreClosed
	}

	values, err := r.client.HGetAll(ctx, r.key(world)).Result()
	if err != nil {
		return nil, fmt.Errorf("load structures of %s from redis: %w", world, err)
	}

	records := make([]multiblock.StructureRecord, 0, len(values))
	for field, raw := range values {
		var rec multiblock.StructureRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			storageLog.Warn("redis: bad structure record %s in %s: %v", field, world, err)
			continue
		}
		records = append(records, rec)
	}
	sortRecords(records)
	return records, nil
}

func (r *RedisStructureStore) Worlds(ctx context.Context) ([]multiblock.WorldID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrStoreClosed
	}

	var out []multiblock.WorldID
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, multiblock.WorldID(strings.TrimPrefix(iter.Val(), r.keyPrefix)))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list worlds in redis: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *RedisStructureStore) DeleteWorld(ctx context.Context, world multiblock.WorldID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrStoreClosed
	}
	if err := r.client.Del(ctx, r.key(world)).Err(); err != nil {
		return fmt.Errorf("delete structures of %s from redis: %w", world, err)
	}
	return nil
}

func (r *RedisStructureStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// sortRecords упорядочивает записи по якорю (X, Y, Z) как Registry.AllLive
func sortRecords(records []multiblock.StructureRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Anchor, records[j].Anchor
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}
