package worldmap

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type AtlasSuite struct {
	dataDir  string
	cacheDir string
}

var _ = Suite(&AtlasSuite{})

const (
	metaFixture  = "testdata/countries-meta.topo.json"
	namesFixture = "testdata/countries-names.topo.json"
)

func (s *AtlasSuite) SetUpTest(c *C) {
	s.dataDir = c.MkDir()
	s.cacheDir = c.MkDir()
}

func (s *AtlasSuite) options(topology string, extra ...Option) []Option {
	opts := []Option{
		WithDataDir(s.dataDir),
		WithCacheDir(s.cacheDir),
		WithTopologyFile(topology),
		WithDownload(false),
	}
	return append(opts, extra...)
}

// observed returns a logger option and the entries logged through it.
func observed() (Option, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return WithLogger(zap.New(core)), logs
}

func fromCache(logs *observer.ObservedLogs) bool {
	return logs.FilterMessage("Catalog loaded from cache").Len() > 0
}

// copyFixture copies a testdata topology into the data directory.
func (s *AtlasSuite) copyFixture(c *C, src string) string {
	b, err := os.ReadFile(src)
	c.Assert(err, IsNil)
	path := filepath.Join(s.dataDir, "countries.topo.json")
	c.Assert(os.WriteFile(path, b, 0644), IsNil)
	return path
}

// config resolves the suite options without building anything.
func (s *AtlasSuite) config(topology string) *AtlasConfig {
	cfg := defaultConfig()
	for _, opt := range s.options(topology) {
		opt(cfg)
	}
	return cfg
}

func (s *AtlasSuite) TestNewAtlasBuildsAndCaches(c *C) {
	cat, err := NewAtlas(s.options(metaFixture)...)
	c.Assert(err, IsNil)
	c.Assert(cat.Len(), Equals, 6)
	c.Assert(cat.Continents(), DeepEquals, []Continent{Antarctica, Asia, Europe, NorthAmerica, SouthAmerica})
	c.Assert(ValidateCatalog(cat), IsNil)

	_, err = os.Stat(filepath.Join(s.cacheDir, snapshotFile))
	c.Assert(err, IsNil)

	// A second build over the same sources reads the snapshot.
	logOpt, logs := observed()
	cached, err := NewAtlas(s.options(metaFixture, logOpt)...)
	c.Assert(err, IsNil)
	c.Assert(fromCache(logs), Equals, true)
	c.Assert(cached.Len(), Equals, cat.Len())
	for i, r := range cached.Countries() {
		want := cat.Countries()[i]
		c.Assert(r.ID, Equals, want.ID)
		c.Assert(r.Name, Equals, want.Name)
		c.Assert(r.Continent, Equals, want.Continent)
		c.Assert(r.ISOA3, Equals, want.ISOA3)
		c.Assert(r.Geohash, Equals, want.Geohash)
		c.Assert(r.Centroid, Equals, want.Centroid)
		c.Assert(r.Geometry, DeepEquals, want.Geometry)
	}
}

func (s *AtlasSuite) TestChangedTopologyIsRebuilt(c *C) {
	path := s.copyFixture(c, metaFixture)
	_, err := NewAtlas(s.options(path)...)
	c.Assert(err, IsNil)

	// Same path, new content.
	s.copyFixture(c, namesFixture)
	logOpt, logs := observed()
	cat, err := NewAtlas(s.options(path, logOpt)...)
	c.Assert(err, IsNil)
	c.Assert(fromCache(logs), Equals, false)
	r, ok := cat.Country("076")
	c.Assert(ok, Equals, true)
	c.Assert(r.Name, Equals, "Brazil")

	// Another file entirely.
	logOpt, logs = observed()
	cat, err = NewAtlas(s.options(metaFixture, logOpt)...)
	c.Assert(err, IsNil)
	c.Assert(fromCache(logs), Equals, false)
	_, ok = cat.Country("ARG")
	c.Assert(ok, Equals, true)
}

func (s *AtlasSuite) TestChangedObjectsAreRebuilt(c *C) {
	_, err := NewAtlas(s.options(metaFixture)...)
	c.Assert(err, IsNil)

	logOpt, logs := observed()
	cat, err := NewAtlas(s.options(metaFixture, logOpt, WithObjects(DefaultGeometryObject, ""))...)
	c.Assert(err, IsNil)
	c.Assert(fromCache(logs), Equals, false)
	r, _ := cat.Country("418")
	c.Assert(r.Name, Equals, "Laos")
}

func (s *AtlasSuite) TestChangedCountryInfoIsRebuilt(c *C) {
	_, err := NewAtlas(s.options(namesFixture)...)
	c.Assert(err, IsNil)

	info := countryInfoRow("AT", "ATL", "Atlantis", "AF") + "\n"
	c.Assert(os.WriteFile(filepath.Join(s.dataDir, dataSetFiles[1].File), []byte(info), 0644), IsNil)

	cat, err := NewAtlas(s.options(namesFixture)...)
	c.Assert(err, IsNil)
	r, _ := cat.Country("Atlantis")
	c.Assert(r.Continent, Equals, Africa)
}

func (s *AtlasSuite) TestForcedClassifierBypassesCache(c *C) {
	_, err := NewAtlas(s.options(metaFixture)...)
	c.Assert(err, IsNil)
	before, err := os.ReadFile(filepath.Join(s.cacheDir, snapshotFile))
	c.Assert(err, IsNil)

	// An empty table sends every country to Europe.
	logOpt, logs := observed()
	cat, err := NewAtlas(s.options(metaFixture, logOpt, WithClassifier(NewTableClassifier(nil)))...)
	c.Assert(err, IsNil)
	c.Assert(fromCache(logs), Equals, false)
	c.Assert(cat.Continents(), DeepEquals, []Continent{Europe})
	c.Assert(cat.CountriesIn(Europe), HasLen, 6)

	after, err := os.ReadFile(filepath.Join(s.cacheDir, snapshotFile))
	c.Assert(err, IsNil)
	c.Assert(after, DeepEquals, before)

	_, err = RegenerateCache(s.options(metaFixture, WithClassifier(DefaultTable()))...)
	c.Assert(errors.Is(err, errForcedClassifier), Equals, true)
}

func (s *AtlasSuite) TestNewAtlasWithoutCache(c *C) {
	cat, err := NewAtlas(s.options(namesFixture, WithCache(false))...)
	c.Assert(err, IsNil)
	c.Assert(cat.Len(), Equals, 6)

	_, err = os.Stat(filepath.Join(s.cacheDir, snapshotFile))
	c.Assert(os.IsNotExist(err), Equals, true)
}

func (s *AtlasSuite) TestNameOnlyTopologyUsesTable(c *C) {
	cat, err := NewAtlas(s.options(namesFixture, WithCache(false))...)
	c.Assert(err, IsNil)

	r, ok := cat.Country("496")
	c.Assert(ok, Equals, true)
	c.Assert(r.Name, Equals, "Mongolia")
	c.Assert(r.Continent, Equals, Asia)

	r, ok = cat.Country("Atlantis")
	c.Assert(ok, Equals, true)
	c.Assert(r.Continent, Equals, Europe)
}

func (s *AtlasSuite) TestCountryInfoExtendsTable(c *C) {
	info := countryInfoRow("AT", "ATL", "Atlantis", "AF") + "\n" +
		countryInfoRow("FR", "FRA", "France", "AS") + "\n"
	err := os.WriteFile(filepath.Join(s.dataDir, dataSetFiles[1].File), []byte(info), 0644)
	c.Assert(err, IsNil)

	cat, err := NewAtlas(s.options(namesFixture, WithCache(false))...)
	c.Assert(err, IsNil)

	r, _ := cat.Country("Atlantis")
	c.Assert(r.Continent, Equals, Africa)
	// Built-in names are never overridden.
	r, _ = cat.Country("250")
	c.Assert(r.Continent, Equals, Europe)
}

func (s *AtlasSuite) TestWithClassifier(c *C) {
	cat, err := NewAtlas(s.options(metaFixture, WithCache(false), WithClassifier(DefaultTable()))...)
	c.Assert(err, IsNil)

	r, _ := cat.Country("192")
	c.Assert(r.Continent, Equals, NorthAmerica)
	r, _ = cat.Country("418")
	c.Assert(r.Continent, Equals, Asia)
}

func (s *AtlasSuite) TestWithObjects(c *C) {
	// Without the metadata layer the fixture is name-only.
	cat, err := NewAtlas(s.options(metaFixture, WithCache(false), WithObjects(DefaultGeometryObject, ""))...)
	c.Assert(err, IsNil)

	r, _ := cat.Country("418")
	c.Assert(r.Name, Equals, "Laos")
	c.Assert(r.ISOA3, Equals, "")
	c.Assert(r.Continent, Equals, Asia)

	_, err = NewAtlas(s.options(metaFixture, WithCache(false), WithObjects("land", ""))...)
	c.Assert(errors.Is(err, ErrUnknownObject), Equals, true)
}

func (s *AtlasSuite) TestMissingTopology(c *C) {
	_, err := NewAtlas(s.options(filepath.Join(s.dataDir, "missing.json"))...)
	c.Assert(err, NotNil)
	c.Assert(os.IsNotExist(errors.Unwrap(err)), Equals, true)
}

func (s *AtlasSuite) TestInvalidTopology(c *C) {
	path := filepath.Join(s.dataDir, "bad.json")
	c.Assert(os.WriteFile(path, []byte(`{"type":"FeatureCollection"}`), 0644), IsNil)

	_, err := NewAtlas(s.options(path)...)
	c.Assert(errors.Is(err, ErrInvalidTopology), Equals, true)
}

func (s *AtlasSuite) TestEmptyTopology(c *C) {
	path := filepath.Join(s.dataDir, "empty.json")
	body := `{"type":"Topology","arcs":[],"objects":{"countries":{"type":"GeometryCollection","geometries":[{"type":null}]}}}`
	c.Assert(os.WriteFile(path, []byte(body), 0644), IsNil)

	_, err := NewAtlas(s.options(path)...)
	c.Assert(err, ErrorMatches, ".*no features with geometry")
}

func (s *AtlasSuite) TestRegenerateCacheIgnoresSnapshot(c *C) {
	_, err := NewAtlas(s.options(namesFixture)...)
	c.Assert(err, IsNil)

	cat, err := RegenerateCache(s.options(metaFixture)...)
	c.Assert(err, IsNil)
	c.Assert(cat.Len(), Equals, 6)

	r, ok := cat.Country("ARG")
	c.Assert(ok, Equals, true)
	c.Assert(r.Continent, Equals, SouthAmerica)

	// The rewritten snapshot now holds the metadata build.
	logOpt, logs := observed()
	cached, err := NewAtlas(s.options(metaFixture, logOpt)...)
	c.Assert(err, IsNil)
	c.Assert(fromCache(logs), Equals, true)
	_, ok = cached.Country("ARG")
	c.Assert(ok, Equals, true)
}

func (s *AtlasSuite) TestCorruptSnapshotIsRebuilt(c *C) {
	c.Assert(os.WriteFile(filepath.Join(s.cacheDir, snapshotFile), []byte("not gob"), 0644), IsNil)

	cat, err := NewAtlas(s.options(namesFixture)...)
	c.Assert(err, IsNil)
	c.Assert(cat.Len(), Equals, 6)

	source, err := sourceFingerprint(s.config(namesFixture))
	c.Assert(err, IsNil)
	records, err := loadSnapshot(s.cacheDir, source)
	c.Assert(err, IsNil)
	c.Assert(records, HasLen, 6)

	_, err = loadSnapshot(s.cacheDir, "other")
	c.Assert(errors.Is(err, errStaleSnapshot), Equals, true)
}

func (s *AtlasSuite) TestSourceFingerprint(c *C) {
	meta, err := sourceFingerprint(s.config(metaFixture))
	c.Assert(err, IsNil)
	again, err := sourceFingerprint(s.config(metaFixture))
	c.Assert(err, IsNil)
	c.Assert(again, Equals, meta)

	nameOnly, err := sourceFingerprint(s.config(namesFixture))
	c.Assert(err, IsNil)
	c.Assert(nameOnly, Not(Equals), meta)

	cfg := s.config(metaFixture)
	cfg.MetadataObject = ""
	noMeta, err := sourceFingerprint(cfg)
	c.Assert(err, IsNil)
	c.Assert(noMeta, Not(Equals), meta)

	_, err = sourceFingerprint(s.config(filepath.Join(s.dataDir, "missing.json")))
	c.Assert(os.IsNotExist(errors.Unwrap(err)), Equals, true)
}

func (s *AtlasSuite) TestSnapshotRejectsInvalidRecords(c *C) {
	records := []CountryRecord{{ID: "x", Name: "X", Continent: "Atlantis"}}
	c.Assert(storeSnapshot(s.cacheDir, "src", records), IsNil)

	_, err := loadSnapshot(s.cacheDir, "src")
	c.Assert(err, ErrorMatches, `snapshot record "x" is invalid`)
}

func (s *AtlasSuite) TestDownloadFile(c *C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.txt":
			_, _ = w.Write([]byte("payload"))
		case "/empty.txt":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	path := filepath.Join(s.dataDir, "ok.txt")
	c.Assert(downloadFile(srv.URL+"/ok.txt", path), IsNil)
	b, err := os.ReadFile(path)
	c.Assert(err, IsNil)
	c.Assert(string(b), Equals, "payload")

	missing := filepath.Join(s.dataDir, "missing.txt")
	err = downloadFile(srv.URL+"/missing.txt", missing)
	c.Assert(errors.Is(err, errHTTPStatus), Equals, true)
	_, err = os.Stat(missing)
	c.Assert(os.IsNotExist(err), Equals, true)

	empty := filepath.Join(s.dataDir, "empty.txt")
	err = downloadFile(srv.URL+"/empty.txt", empty)
	c.Assert(errors.Is(err, errEmptyDataSet), Equals, true)
	_, err = os.Stat(empty)
	c.Assert(os.IsNotExist(err), Equals, true)
	_, err = os.Stat(empty + downloadSuffix)
	c.Assert(os.IsNotExist(err), Equals, true)
}

func (s *AtlasSuite) TestFailedDownloadKeepsPreviousFile(c *C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
	}))
	defer srv.Close()

	path := filepath.Join(s.dataDir, "countries.json")
	c.Assert(os.WriteFile(path, []byte("previous"), 0644), IsNil)

	c.Assert(downloadFile(srv.URL+"/countries.json", path), NotNil)

	b, err := os.ReadFile(path)
	c.Assert(err, IsNil)
	c.Assert(string(b), Equals, "previous")
	_, err = os.Stat(path + downloadSuffix)
	c.Assert(os.IsNotExist(err), Equals, true)
}

func (s *AtlasSuite) TestDownloadSkipsExistingAndOverriddenFiles(c *C) {
	for _, f := range dataSetFiles {
		if f.ID == DataSourceWorldAtlas {
			continue
		}
		c.Assert(os.WriteFile(filepath.Join(s.dataDir, f.File), nil, 0644), IsNil)
	}
	cfg := defaultConfig()
	cfg.DataDir = s.dataDir
	cfg.TopologyFile = namesFixture

	// Nothing is fetched, so this passes offline.
	c.Assert(downloadDataSets(cfg), IsNil)
}
