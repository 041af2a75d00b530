package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// SnapshotVersion задаёт текущую версию формата снимка
const SnapshotVersion = 1

// SnapshotHeader — первая строка потока, читается без разбора тела
type SnapshotHeader struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Worlds  int       `json:"worlds"`
}

// Document — снимок структур всех миров
type Document struct {
	Version int                                                  `json:"version"`
	SavedAt time.Time                                            `json:"saved_at"`
	Worlds  map[multiblock.WorldID][]multiblock.StructureRecord `json:"worlds"`
}

// WriteSnapshot пишет документ в zstd файл: строка заголовка, затем JSON тела
func WriteSnapshot(path string, doc Document) (err error) {
	if doc.Version == 0 {
		doc.Version = SnapshotVersion
	}
	if doc.SavedAt.IsZero() {
		doc.SavedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(SnapshotHeader{Version: doc.Version, SavedAt: doc.SavedAt, Worlds: len(doc.Worlds)})
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&doc); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshotHeader читает только заголовок снимка
func ReadSnapshotHeader(path string) (SnapshotHeader, error) {
	var h SnapshotHeader
	err := readSnapshot(path, func(br *bufio.Reader) error {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		return json.Unmarshal(line, &h)
	})
	return h, err
}

// ReadSnapshot читает документ целиком
func ReadSnapshot(path string) (Document, error) {
	var doc Document
	err := readSnapshot(path, func(br *bufio.Reader) error {
		if _, err := br.ReadBytes('\n'); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if err := json.NewDecoder(br).Decode(&doc); err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
		return nil
	})
	if err != nil {
		return doc, err
	}
	if doc.Version > SnapshotVersion {
		return doc, fmt.Errorf("snapshot version %d is newer than supported %d", doc.Version, SnapshotVersion)
	}
	if doc.Worlds == nil {
		doc.Worlds = make(map[multiblock.WorldID][]multiblock.StructureRecord)
	}
	return doc, nil
}

func readSnapshot(path string, fn func(*bufio.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	return fn(bufio.NewReaderSize(dec, 256*1024))
}

// ExportSnapshot выгружает все миры хранилища в снимок
func ExportSnapshot(ctx context.Context, store StructureStore, path string) (Document, error) {
	worlds, err := store.Worlds(ctx)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		Version: SnapshotVersion,
		SavedAt: time.Now().UTC(),
		Worlds:  make(map[multiblock.WorldID][]multiblock.StructureRecord, len(worlds)),
	}
	for _, world := range worlds {
		records, err := store.LoadWorld(ctx, world)
		if err != nil {
			return doc, err
		}
		doc.Worlds[world] = records
	}
	return doc, WriteSnapshot(path, doc)
}

// ImportSnapshot записывает миры снимка в хранилище, заменяя их записи
func ImportSnapshot(ctx context.Context, store StructureStore, path string) (Document, error) {
	doc, err := ReadSnapshot(path)
	if err != nil {
		return doc, err
	}
	for world, records := range doc.Worlds {
		if err := store.SaveWorld(ctx, world, records); err != nil {
			return doc, fmt.Errorf("import world %s: %w", world, err)
		}
	}
	return doc, nil
}
