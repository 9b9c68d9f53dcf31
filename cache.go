package worldmap

import (
	"bytes"
	"compress/bzip2"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
)

// snapshotFile is the catalog snapshot inside the cache directory. A
// bzip2-compressed copy (snapshotFile + ".bz2") is preferred when present:
//
//	bzip2 -k atlas-cache/catalog.dmp
const snapshotFile = "catalog.dmp"

// snapshotVersion is bumped whenever snapshotGob or countryRecordGob change
// shape.
const snapshotVersion = 2

// errStaleSnapshot is returned when a snapshot was built from other inputs.
var errStaleSnapshot = errors.New("snapshot built from different sources")

// countryRecordGob is the on-disk form of a CountryRecord.
type countryRecordGob struct {
	ID        string
	Name      string
	Continent string
	ISOA3     string
	Geometry  orb.Geometry
	Centroid  orb.Point
	Geohash   string
}

type snapshotGob struct {
	Version int
	Source  string // sourceFingerprint of the build
	Records []countryRecordGob
}

func init() {
	// Concrete types stored behind the orb.Geometry interface.
	gob.Register(orb.Point{})
	gob.Register(orb.MultiPoint{})
	gob.Register(orb.LineString{})
	gob.Register(orb.MultiLineString{})
	gob.Register(orb.Polygon{})
	gob.Register(orb.MultiPolygon{})
	gob.Register(orb.Collection{})
}

// sourceFingerprint hashes everything a default build reads: the topology
// bytes, the object names and the optional GeoNames country table.
func sourceFingerprint(cfg *AtlasConfig) (string, error) {
	h := sha256.New()

	fh, err := os.Open(cfg.topologyPath())
	if err != nil {
		return "", fmt.Errorf("opening topology: %w", err)
	}
	_, err = io.Copy(h, fh)
	fh.Close()
	if err != nil {
		return "", fmt.Errorf("reading topology: %w", err)
	}
	fmt.Fprintf(h, "\x00objects:%s,%s\x00", cfg.GeometryObject, cfg.MetadataObject)

	info := filepath.Join(cfg.DataDir, dataSetFiles[1].File)
	fh, err = os.Open(info)
	switch {
	case errors.Is(err, os.ErrNotExist):
		io.WriteString(h, "countryinfo:none")
	case err != nil:
		return "", fmt.Errorf("opening %s: %w", info, err)
	default:
		io.WriteString(h, "countryinfo:")
		_, err = io.Copy(h, fh)
		fh.Close()
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", info, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// storeSnapshot writes the records to the cache directory, tagged with the
// fingerprint of the sources they were built from.
func storeSnapshot(cacheDir, source string, records []CountryRecord) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	snap := snapshotGob{Version: snapshotVersion, Source: source, Records: make([]countryRecordGob, len(records))}
	for i, r := range records {
		snap.Records[i] = countryRecordGob{
			ID:        r.ID,
			Name:      r.Name,
			Continent: string(r.Continent),
			ISOA3:     r.ISOA3,
			Geometry:  r.Geometry,
			Centroid:  r.Centroid,
			Geohash:   r.Geohash,
		}
	}

	b := new(bytes.Buffer)
	if err := gob.NewEncoder(b).Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, snapshotFile), b.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// loadSnapshot reads the records from the cache directory. A snapshot built
// from other sources is stale; records with an invalid continent or no
// geometry make the whole snapshot invalid.
func loadSnapshot(cacheDir, source string) ([]CountryRecord, error) {
	r, cleanup, err := openOptionallyBzippedFile(filepath.Join(cacheDir, snapshotFile))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var snap snapshotGob
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, snapshotVersion)
	}
	if snap.Source != source {
		return nil, errStaleSnapshot
	}

	records := make([]CountryRecord, len(snap.Records))
	for i, g := range snap.Records {
		c := Continent(g.Continent)
		if !c.Valid() || g.Geometry == nil {
			return nil, fmt.Errorf("snapshot record %q is invalid", g.ID)
		}
		records[i] = CountryRecord{
			ID:        g.ID,
			Name:      g.Name,
			Continent: c,
			ISOA3:     g.ISOA3,
			Geometry:  g.Geometry,
			Centroid:  g.Centroid,
			Geohash:   g.Geohash,
		}
	}
	return records, nil
}

func openOptionallyBzippedFile(file string) (io.Reader, func() error, error) {
	fh, err := os.Open(file + ".bz2")
	if err != nil {
		fh, err = os.Open(file)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		return fh, fh.Close, nil
	}
	return bzip2.NewReader(fh), fh.Close, nil
}
