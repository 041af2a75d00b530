package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
)

// MariaStructureStore реализует StructureStore для MariaDB/MySQL.
// Одна строка таблицы multiblock_structures на структуру.
type MariaStructureStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMariaStructureStore подключается к базе и создаёт таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaStructureStore(dsn string) (*MariaStructureStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	store := &MariaStructureStore{db: db}
	if err := store.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	storageLog.Info("maria structure store ready")
	return store, nil
}

func (m *MariaStructureStore) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS multiblock_structures (
			world        VARCHAR(64)  NOT NULL,
			anchor_x     INT          NOT NULL,
			anchor_y     INT          NOT NULL,
			anchor_z     INT          NOT NULL,
			cell_type_id VARCHAR(128) NOT NULL,
			start_x      INT          NOT NULL,
			start_y      INT          NOT NULL,
			start_z      INT          NOT NULL,
			width        TINYINT      NOT NULL,
			height       TINYINT      NOT NULL,
			depth        TINYINT      NOT NULL,
			updated_at   TIMESTAMP    DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (world, anchor_x, anchor_y, anchor_z)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	_, err := m.db.Exec(query)
	return err
}

// SaveWorld заменяет строки мира в одной транзакции
func (m *MariaStructureStore) SaveWorld(ctx context.Context, world multiblock.WorldID, records []multiblock.StructureRecord) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save of %s: %w", world, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM multiblock_structures WHERE world = ?`, string(world)); err != nil {
		return fmt.Errorf("clear structures of %s: %w", world, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO multiblock_structures
			(world, anchor_x, anchor_y, anchor_z, cell_type_id, start_x, start_y, start_z, width, height, depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			cell_type_id = VALUES(cell_type_id),
			start_x = VALUES(start_x), start_y = VALUES(start_y), start_z = VALUES(start_z),
			width = VALUES(width), height = VALUES(height), depth = VALUES(depth)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx, string(world),
			rec.Anchor.X, rec.Anchor.Y, rec.Anchor.Z, rec.CellTypeID,
			rec.RangeStart.X, rec.RangeStart.Y, rec.RangeStart.Z,
			rec.Width, rec.Height, rec.Depth)
		if err != nil {
			return fmt.Errorf("insert structure at %s: %w", rec.Anchor, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save of %s: %w", world, err)
	}
	return nil
}

func (m *MariaStructureStore) LoadWorld(ctx context.Context, world multiblock.WorldID) ([]multiblock.StructureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT anchor_x, anchor_y, anchor_z, cell_type_id, start_x, start_y, start_z, width, height, depth
		FROM multiblock_structures WHERE world = ?
		ORDER BY anchor_x, anchor_y, anchor_z`, string(world))
	if err != nil {
		return nil, fmt.Errorf("query structures of %s: %w", world, err)
	}
	defer rows.Close()

	records := []multiblock.StructureRecord{}
	for rows.Next() {
		var rec multiblock.StructureRecord
		var a, s vec.Vec3
		if err := rows.Scan(&a.X, &a.Y, &a.Z, &rec.CellTypeID, &s.X, &s.Y, &s.Z, &rec.Width, &rec.Height, &rec.Depth); err != nil {
			return nil, fmt.Errorf("scan structure of %s: %w", world, err)
		}
		rec.Anchor, rec.RangeStart = a, s
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (m *MariaStructureStore) Worlds(ctx context.Context) ([]multiblock.WorldID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT world FROM multiblock_structures ORDER BY world`)
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	defer rows.Close()

	var out []multiblock.WorldID
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, multiblock.WorldID(w))
	}
	return out, rows.Err()
}

func (m *MariaStructureStore) DeleteWorld(ctx context.Context, world multiblock.WorldID) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM multiblock_structures WHERE world = ?`, string(world)); err != nil {
		return fmt.Errorf("delete structures of %s: %w", world, err)
	}
	return nil
}

func (m *MariaStructureStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
