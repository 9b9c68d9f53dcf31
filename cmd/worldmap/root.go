package main

import (
	"os"
	"strconv"

	"github.com/andreiashu/worldmap"
	"github.com/andreiashu/worldmap/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// config is the resolved command configuration.
type config struct {
	DataDir  string
	CacheDir string
	Topology string
	Addr     string
	LogLevel string
	Dev      bool
	NoCache  bool
	Offline  bool
}

func configFromEnv() *config {
	cfg := &config{
		DataDir:  envOr("WORLDMAP_DATA_DIR", "./atlas-data"),
		CacheDir: envOr("WORLDMAP_CACHE_DIR", "./atlas-cache"),
		Topology: os.Getenv("WORLDMAP_TOPOLOGY"),
		Addr:     envOr("WORLDMAP_ADDR", ":8080"),
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
	if v, err := strconv.ParseBool(os.Getenv("WORLDMAP_DEV")); err == nil {
		cfg.Dev = v
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *config) logger() (*zap.Logger, error) {
	return logging.New(logging.Config{Level: c.LogLevel, Development: c.Dev})
}

func (c *config) atlasOptions(log *zap.Logger) []worldmap.Option {
	opts := []worldmap.Option{
		worldmap.WithDataDir(c.DataDir),
		worldmap.WithCacheDir(c.CacheDir),
		worldmap.WithCache(!c.NoCache),
		worldmap.WithDownload(!c.Offline),
		worldmap.WithLogger(log),
	}
	if c.Topology != "" {
		opts = append(opts, worldmap.WithTopologyFile(c.Topology))
	}
	return opts
}

// loadCatalog builds the catalog once for a command.
func (c *config) loadCatalog() (*worldmap.Catalog, *zap.Logger, error) {
	log, err := c.logger()
	if err != nil {
		return nil, nil, err
	}
	cat, err := worldmap.NewAtlas(c.atlasOptions(log)...)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return cat, log, nil
}

func newRootCmd() *cobra.Command {
	cfg := configFromEnv()

	root := &cobra.Command{
		Use:           "worldmap",
		Short:         "Country-to-continent catalog for the world map",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding raw data files")
	flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "directory holding the catalog snapshot")
	flags.StringVar(&cfg.Topology, "topology", cfg.Topology, "TopoJSON file to load instead of the data dir copy")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development logging")
	flags.BoolVar(&cfg.NoCache, "no-cache", false, "ignore and do not write the catalog snapshot")
	flags.BoolVar(&cfg.Offline, "offline", false, "never download missing data files")

	root.AddCommand(
		newServeCmd(cfg),
		newContinentsCmd(cfg),
		newCountriesCmd(cfg),
		newExplainCmd(),
		newValidateCmd(cfg),
		newLocateCmd(cfg),
		newOutlineCmd(cfg),
	)
	return root
}
