package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"duetmenu/internal/models"
	"duetmenu/internal/store"
)

// Imports a browser localStorage dump (JSON object of key to raw string
// value) into the sqlite store, so an existing household can move off the
// purely in-browser version without losing its menu and history.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dumpPath = flag.String("dump", "localstorage.json", "path to localStorage dump json")
		dbPath   = flag.String("db", "./data/kiosk.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*dumpPath)
	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}

	var dump map[string]string
	if err = json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("parse dump: %w", err)
	}

	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	imported := 0
	for _, key := range []string{models.KeyMenu, models.KeyCart, models.KeyHistory} {
		raw, ok := dump[key]
		if !ok {
			continue
		}
		if err := validatePayload(key, []byte(raw)); err != nil {
			return fmt.Errorf("invalid payload for %s: %w", key, err)
		}
		if err := st.Set(ctx, key, []byte(raw)); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		imported++
	}

	fmt.Printf("done: imported=%d keys\n", imported)
	return nil
}

// validatePayload checks that the blob parses as the shape the kiosk
// expects for its key. Malformed blobs would only be silently reseeded
// later, so reject them here instead.
func validatePayload(key string, raw []byte) error {
	switch key {
	case models.KeyMenu:
		var dishes []models.Dish
		return json.Unmarshal(raw, &dishes)
	case models.KeyCart:
		var lines []models.CartLine
		return json.Unmarshal(raw, &lines)
	case models.KeyHistory:
		var records []models.OrderRecord
		return json.Unmarshal(raw, &records)
	default:
		return fmt.Errorf("unknown key")
	}
}
