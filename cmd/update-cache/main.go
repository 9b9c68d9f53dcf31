// Command update-cache rebuilds the worldmap catalog snapshot from raw data.
//
// Usage:
//
//	go run ./cmd/update-cache
//
// This reads (and, if missing, downloads) ./atlas-data/ and writes
// ./atlas-cache/catalog.dmp. Optionally compress the snapshot afterwards:
//
//	bzip2 -k atlas-cache/catalog.dmp
package main

import (
	"fmt"
	"os"

	"github.com/andreiashu/worldmap"
	"github.com/andreiashu/worldmap/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	log, err := logging.New(logging.Config{Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	opts := []worldmap.Option{worldmap.WithLogger(log)}
	if dir := os.Getenv("WORLDMAP_DATA_DIR"); dir != "" {
		opts = append(opts, worldmap.WithDataDir(dir))
	}
	if dir := os.Getenv("WORLDMAP_CACHE_DIR"); dir != "" {
		opts = append(opts, worldmap.WithCacheDir(dir))
	}

	fmt.Println("Regenerating worldmap catalog from raw data...")

	cat, err := worldmap.RegenerateCache(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := worldmap.ValidateCatalog(cat); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Catalog regenerated: %s\n", cat)
}
