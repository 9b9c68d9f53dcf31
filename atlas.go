package worldmap

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// DataSourceID identifies a data source type.
type DataSourceID string

const (
	DataSourceWorldAtlas      DataSourceID = "worldAtlasCountries110m"
	DataSourceGeonamesCountry DataSourceID = "geonamesCountryInfo"
)

// DataSource defines a downloadable input file.
type DataSource struct {
	URL      string       // Download URL
	File     string       // File name inside the data directory
	ID       DataSourceID // Identifier for processing logic
	Optional bool         // Missing optional files are skipped, not fatal
}

// dataSetFiles lists the bundled inputs. The world-atlas topology ships
// name-only geometry; countryInfo extends the name table.
var dataSetFiles = []DataSource{
	{URL: "https://cdn.jsdelivr.net/npm/world-atlas@2/countries-110m.json", File: "countries-110m.json", ID: DataSourceWorldAtlas},
	{URL: "https://download.geonames.org/export/dump/countryInfo.txt", File: "countryInfo.txt", ID: DataSourceGeonamesCountry, Optional: true},
}

// Object names inside the topology.
const (
	DefaultGeometryObject = "countries"
	DefaultMetadataObject = "ne_110m_admin_0_countries"
)

// AtlasConfig contains configuration options for NewAtlas.
type AtlasConfig struct {
	DataDir        string     // Directory for raw data files (default: "./atlas-data")
	CacheDir       string     // Directory for the catalog snapshot (default: "./atlas-cache")
	TopologyFile   string     // Overrides the world-atlas file inside DataDir
	GeometryObject string     // Topology object holding country geometry
	MetadataObject string     // Optional topology object holding admin metadata
	Classifier     Classifier // nil selects one from the data
	Download       bool       // Fetch missing data files
	UseCache       bool       // Read and write the catalog snapshot
	Logger         *zap.Logger
}

// Option is a functional option for configuring NewAtlas.
type Option func(*AtlasConfig)

// WithDataDir sets the directory for raw data files.
func WithDataDir(dir string) Option {
	return func(c *AtlasConfig) {
		c.DataDir = dir
	}
}

// WithCacheDir sets the directory for the catalog snapshot.
func WithCacheDir(dir string) Option {
	return func(c *AtlasConfig) {
		c.CacheDir = dir
	}
}

// WithTopologyFile reads the topology from path instead of DataDir.
func WithTopologyFile(path string) Option {
	return func(c *AtlasConfig) {
		c.TopologyFile = path
	}
}

// WithObjects names the geometry and metadata objects of the topology.
// An empty metadata name disables reconciliation.
func WithObjects(geometry, metadata string) Option {
	return func(c *AtlasConfig) {
		c.GeometryObject = geometry
		c.MetadataObject = metadata
	}
}

// WithClassifier forces a classification strategy. Catalogs built with a
// forced classifier never read or write the snapshot.
func WithClassifier(cls Classifier) Option {
	return func(c *AtlasConfig) {
		c.Classifier = cls
	}
}

// WithDownload enables or disables fetching missing data files.
func WithDownload(enabled bool) Option {
	return func(c *AtlasConfig) {
		c.Download = enabled
	}
}

// WithCache enables or disables the catalog snapshot.
func WithCache(enabled bool) Option {
	return func(c *AtlasConfig) {
		c.UseCache = enabled
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *AtlasConfig) {
		if l != nil {
			c.Logger = l
		}
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() *AtlasConfig {
	return &AtlasConfig{
		DataDir:        "./atlas-data",
		CacheDir:       "./atlas-cache",
		GeometryObject: DefaultGeometryObject,
		MetadataObject: DefaultMetadataObject,
		Download:       true,
		UseCache:       true,
		Logger:         zap.NewNop(),
	}
}

func (c *AtlasConfig) topologyPath() string {
	if c.TopologyFile != "" {
		return c.TopologyFile
	}
	return filepath.Join(c.DataDir, dataSetFiles[0].File)
}

// snapshotEnabled reports whether builds with cfg may use the snapshot.
func (c *AtlasConfig) snapshotEnabled() bool {
	return c.UseCache && c.Classifier == nil
}

// errForcedClassifier is returned by RegenerateCache when a classifier is
// forced; such catalogs are never cached.
var errForcedClassifier = errors.New("catalogs built with a forced classifier are not cached")

// NewAtlas builds the country catalog once.
//
// Missing data files are downloaded first when enabled. The snapshot in
// CacheDir is used when it was built from the same topology bytes, object
// names and country table. Otherwise the topology is decoded, reconciled with
// the metadata object if the topology has one, classified and indexed, and
// the snapshot is rewritten.
//
//	cat, err := worldmap.NewAtlas(worldmap.WithDataDir("/srv/atlas"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range cat.CountriesIn(worldmap.Africa) {
//	    fmt.Println(c.Name)
//	}
func NewAtlas(opts ...Option) (*Catalog, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.Logger

	if cfg.Download {
		if err := downloadDataSets(cfg); err != nil {
			return nil, fmt.Errorf("failed to download data sets: %w", err)
		}
	}

	var source string
	if cfg.snapshotEnabled() {
		fp, err := sourceFingerprint(cfg)
		if err != nil {
			// buildRecords reports the unreadable source.
			log.Debug("Catalog sources unreadable", zap.Error(err))
		} else {
			source = fp
			records, err := loadSnapshot(cfg.CacheDir, source)
			if err == nil && len(records) > 0 {
				cat := NewCatalog(records)
				log.Info("Catalog loaded from cache",
					zap.String("cache_dir", cfg.CacheDir),
					zap.Int("countries", cat.Len()),
				)
				return cat, nil
			}
			log.Debug("Catalog cache unavailable", zap.Error(err))
		}
	}

	records, err := buildRecords(cfg)
	if err != nil {
		return nil, err
	}
	cat := NewCatalog(records)

	if source != "" {
		if err := storeSnapshot(cfg.CacheDir, source, records); err != nil {
			log.Warn("Failed to store catalog cache", zap.String("cache_dir", cfg.CacheDir), zap.Error(err))
		}
	}
	log.Info("Catalog built", zap.Int("countries", cat.Len()), zap.Int("continents", len(cat.Continents())))
	return cat, nil
}

// RegenerateCache rebuilds the catalog from raw data, ignoring any existing
// snapshot, and rewrites the snapshot.
func RegenerateCache(opts ...Option) (*Catalog, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Classifier != nil {
		return nil, errForcedClassifier
	}
	if cfg.Download {
		if err := downloadDataSets(cfg); err != nil {
			return nil, fmt.Errorf("failed to download data sets: %w", err)
		}
	}
	records, err := buildRecords(cfg)
	if err != nil {
		return nil, err
	}
	source, err := sourceFingerprint(cfg)
	if err != nil {
		return nil, err
	}
	if err := storeSnapshot(cfg.CacheDir, source, records); err != nil {
		return nil, fmt.Errorf("failed to store cache: %w", err)
	}
	return NewCatalog(records), nil
}

// buildRecords runs decode -> reconcile -> classify.
func buildRecords(cfg *AtlasConfig) ([]CountryRecord, error) {
	log := cfg.Logger
	path := cfg.topologyPath()

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening topology: %w", err)
	}
	defer fh.Close()

	topo, err := DecodeTopology(fh)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	geometry, err := topo.FeatureCollection(cfg.GeometryObject)
	if err != nil {
		return nil, fmt.Errorf("loading geometry: %w", err)
	}

	var idx *MetadataIndex
	if cfg.MetadataObject != "" && topo.HasObject(cfg.MetadataObject) {
		meta, err := topo.FeatureCollection(cfg.MetadataObject)
		if err != nil {
			return nil, fmt.Errorf("loading metadata: %w", err)
		}
		idx = NewMetadataIndex(meta.Features)
		log.Debug("Metadata indexed", zap.Int("records", idx.Len()), zap.Int("keys", idx.Keys()))
	}

	cls := cfg.Classifier
	if cls == nil {
		cls = selectForFeatures(cfg, geometry.Features, idx)
	}

	records := classifyFeatures(geometry.Features, idx, cls, log)
	if len(records) == 0 {
		return nil, fmt.Errorf("topology %s: object %q has no features with geometry", path, cfg.GeometryObject)
	}
	return records, nil
}

// selectForFeatures picks the classifier for the data and, for name-only
// data, extends the default table with GeoNames names when available.
func selectForFeatures(cfg *AtlasConfig, features []*geojson.Feature, idx *MetadataIndex) Classifier {
	props := make([]geojson.Properties, 0, len(features))
	for _, f := range features {
		if f != nil && f.Geometry != nil {
			props = append(props, idx.Reconcile(f))
		}
	}
	table := DefaultTable()
	cls := SelectClassifier(table, props...)
	if cls != Classifier(table) {
		cfg.Logger.Debug("Using rule classifier")
		return cls
	}

	path := filepath.Join(cfg.DataDir, dataSetFiles[1].File)
	if fh, err := os.Open(path); err == nil {
		extra, err := LoadCountryInfoTable(fh)
		fh.Close()
		if err != nil {
			cfg.Logger.Warn("Failed to load country info", zap.String("path", path), zap.Error(err))
		} else {
			table.Merge(extra)
		}
	}
	cfg.Logger.Debug("Using name table classifier", zap.Int("names", table.Len()))
	return table
}

// downloadMu guards data file downloads so concurrent NewAtlas calls never
// write the same file twice.
var downloadMu sync.Mutex

// downloadDataSets downloads the raw data files that don't exist locally.
func downloadDataSets(cfg *AtlasConfig) error {
	downloadMu.Lock()
	defer downloadMu.Unlock()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	for _, f := range dataSetFiles {
		localPath := filepath.Join(cfg.DataDir, f.File)
		if f.ID == DataSourceWorldAtlas && cfg.TopologyFile != "" {
			continue
		}
		if _, err := os.Stat(localPath); err == nil {
			continue
		}
		if err := downloadFile(f.URL, localPath); err != nil {
			if f.Optional {
				cfg.Logger.Info("Optional data set not downloaded", zap.String("source", string(f.ID)), zap.Error(err))
				continue
			}
			return fmt.Errorf("downloading %s: %w", f.ID, err)
		}
		cfg.Logger.Info("Downloaded data set", zap.String("source", string(f.ID)), zap.String("path", localPath))
	}
	return nil
}

// httpClient is a shared HTTP client with reasonable timeouts.
var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

var (
	// errHTTPStatus is wrapped for non-200 responses.
	errHTTPStatus = errors.New("unexpected HTTP status")
	// errEmptyDataSet is wrapped when a download has no body.
	errEmptyDataSet = errors.New("empty data set")
)

// downloadSuffix marks a data file that is still being written.
const downloadSuffix = ".download"

// downloadFile fetches url into path. The body lands in path+".download"
// first and is renamed once complete, so a data set either exists in full or
// not at all. An empty body is an error: every data set has content.
func downloadFile(url, path string) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: %w %d", url, errHTTPStatus, resp.StatusCode)
	}

	tmp := path + downloadSuffix
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", tmp, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = errEmptyDataSet
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("downloading %s: %w", url, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("installing %s: %w", path, err)
	}
	return nil
}
