package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"duetmenu/internal/config"
	"duetmenu/internal/events"
	"duetmenu/internal/export"
	"duetmenu/internal/logging"
	"duetmenu/internal/service"
	"duetmenu/internal/store"
)

// One-shot exporter: reads the stored order history and writes an Excel
// workbook, for use outside the running kiosk.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to config yaml (defaults to CONFIG_PATH or configs/config.yaml)")
		outDir     = flag.String("out", "", "output directory (defaults to exports path from config)")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "export-main").Logger()

	if cfg.Storage.Backend != config.StorageSQLite {
		return fmt.Errorf("export requires the sqlite storage backend, got %s", cfg.Storage.Backend)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	history := service.NewHistoryService(st, events.NewEventBus(), &logger)
	if err := history.Load(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	dir := *outDir
	if dir == "" {
		dir = cfg.Exports.Path
	}

	exporter := export.NewXLSXExporter(history, dir, &logger)
	filePath, err := exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	fmt.Println(filePath)
	return nil
}
