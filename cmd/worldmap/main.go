// Command worldmap serves and inspects the country catalog.
//
// Usage:
//
//	worldmap serve --addr :8080
//	worldmap continents
//	worldmap countries --continent "South America"
//	worldmap explain --continent "North America" --subregion Caribbean
//	worldmap locate 48.85 2.35
//	worldmap outline BRA > brazil.svg
//
// Configuration is read from the environment (and .env when present):
// WORLDMAP_DATA_DIR, WORLDMAP_CACHE_DIR, WORLDMAP_TOPOLOGY, WORLDMAP_ADDR,
// WORLDMAP_DEV and LOG_LEVEL. Flags override the environment.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
