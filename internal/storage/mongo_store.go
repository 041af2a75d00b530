package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// MongoOptions содержит параметры подключения к MongoDB
type MongoOptions struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. foodcraft
	Collection string // e.g. structures
}

// worldDocument — один документ на мир
type worldDocument struct {
	World     string                       `bson:"_id"`
	Records   []multiblock.StructureRecord `bson:"records"`
	UpdatedAt time.Time                    `bson:"updated_at"`
}

// MongoStructureStore реализует StructureStore на MongoDB
type MongoStructureStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration
	mu         sync.RWMutex
	closed     bool
}

// NewMongoStructureStore устанавливает соединение и проверяет его
func NewMongoStructureStore(opts MongoOptions) (*MongoStructureStore, error) {
	if opts.URI == "" {
		opts.URI = "mongodb://localhost:27017"
	}
	if opts.Database == "" {
		opts.Database = "foodcraft"
	}
	if opts.Collection == "" {
		opts.Collection = "structures"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	storageLog.Info("mongo structure store connected to %s/%s", opts.Database, opts.Collection)
	return &MongoStructureStore{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		ctxTimeout: 5 * time.Second,
	}, nil
}

func (m *MongoStructureStore) SaveWorld(ctx context.Context, world multiblock.WorldID, records []multiblock.StructureRecord) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	if records == nil {
		records = []multiblock.StructureRecord{}
	}
	doc := worldDocument{World: string(world), Records: records, UpdatedAt: time.Now().UTC()}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": string(world)}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save structures of %s to mongo: %w", world, err)
	}
	return nil
}

func (m *MongoStructureStore) LoadWorld(ctx context.Context, world multiblock.WorldID) ([]multiblock.StructureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc worldDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": string(world)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return []multiblock.StructureRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load structures of %s from mongo: %w", world, err)
	}
	if doc.Records == nil {
		doc.Records = []multiblock.StructureRecord{}
	}
	return doc.Records, nil
}

func (m *MongoStructureStore) Worlds(ctx context.Context) ([]multiblock.WorldID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	findOpts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list worlds in mongo: %w", err)
	}
	defer cur.Close(ctx)

	var out []multiblock.WorldID
	for cur.Next(ctx) {
		var doc struct {
			World string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, multiblock.WorldID(doc.World))
	}
	return out, cur.Err()
}

func (m *MongoStructureStore) DeleteWorld(ctx context.Context, world multiblock.WorldID) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": string(world)}); err != nil {
		return fmt.Errorf("delete structures of %s from mongo: %w", world, err)
	}
	return nil
}

func (m *MongoStructureStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
