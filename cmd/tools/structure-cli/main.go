package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/666daji/Food-Craft-sub000/internal/config"
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (FOODCRAFT_CONFIG if empty)")
		backend    = flag.String("backend", "", "override storage backend (memory, badger, redis, maria, mongo)")
		command    = flag.String("cmd", "list", "Command: list, export, import, header")
		worldID    = flag.String("world", "", "World ID filter for list")
		file       = flag.String("file", "", "Snapshot file for export/import/header (default: storage.snapshot_path)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	path := *file
	if path == "" {
		path = cfg.Storage.SnapshotPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *command == "header" {
		if err := showHeader(os.Stdout, path); err != nil {
			log.Fatalf("❌ Header failed: %v", err)
		}
		return
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer store.Close()

	switch *command {
	case "list":
		err = listStructures(ctx, os.Stdout, store, multiblock.WorldID(*worldID))
	case "export":
		var doc storage.Document
		doc, err = storage.ExportSnapshot(ctx, store, path)
		if err == nil {
			fmt.Printf("📦 Exported %d worlds to %s\n", len(doc.Worlds), path)
		}
	case "import":
		var doc storage.Document
		doc, err = storage.ImportSnapshot(ctx, store, path)
		if err == nil {
			fmt.Printf("📥 Imported %d worlds from %s (saved %s)\n", len(doc.Worlds), path, doc.SavedAt.Format(time.RFC3339))
		}
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: list, export, import, header")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

// listStructures печатает записи структур по мирам
func listStructures(ctx context.Context, out io.Writer, store storage.StructureStore, only multiblock.WorldID) error {
	worlds := []multiblock.WorldID{only}
	if only == "" {
		var err error
		if worlds, err = store.Worlds(ctx); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORLD\tANCHOR\tSIZE\tTYPE")
	total := 0
	for _, w := range worlds {
		records, err := store.LoadWorld(ctx, w)
		if err != nil {
			return fmt.Errorf("world %s: %w", w, err)
		}
		sort.SliceStable(records, func(i, j int) bool { return records[i].CellTypeID < records[j].CellTypeID })
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%dx%dx%d\t%s\n", w, rec.Anchor, rec.Width, rec.Height, rec.Depth, rec.CellTypeID)
		}
		total += len(records)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d structures in %d worlds\n", total, len(worlds))
	return nil
}

func showHeader(out io.Writer, path string) error {
	h, err := storage.ReadSnapshotHeader(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "version=%d saved_at=%s worlds=%d\n", h.Version, h.SavedAt.Format(time.RFC3339), h.Worlds)
	return nil
}
