package worldmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CountryRecord is one classified country.
type CountryRecord struct {
	ID        string       // feature id, else ISO code, else name; never empty
	Name      string       // name_long, else name, else "Unknown"
	Continent Continent    // always one of the seven continents
	ISOA3     string       // ISO-3166 alpha-3, empty when the source has none
	Geometry  orb.Geometry // carried through from the decoded feature
	Centroid  orb.Point    // spherical centroid, [lng, lat]
	Geohash   string       // geohash of Centroid

	shape *countryShape // s2 loops built with the centroid, reused by the catalog
}

// Feature converts the record to GeoJSON with the id, name, continent and
// isoA3 properties presentation code expects.
func (r CountryRecord) Feature() *geojson.Feature {
	f := geojson.NewFeature(r.Geometry)
	f.ID = r.ID
	f.Properties["id"] = r.ID
	f.Properties["name"] = r.Name
	f.Properties["continent"] = string(r.Continent)
	if r.ISOA3 != "" {
		f.Properties["isoA3"] = r.ISOA3
	}
	return f
}

// ClassifyFeatures turns decoded geometry features into country records.
// Features without geometry are dropped. idx may be nil when the dataset has
// no separate metadata layer. A nil classifier selects one from the data.
func ClassifyFeatures(features []*geojson.Feature, idx *MetadataIndex, cls Classifier) []CountryRecord {
	return classifyFeatures(features, idx, cls, zap.NewNop())
}

func classifyFeatures(features []*geojson.Feature, idx *MetadataIndex, cls Classifier, log *zap.Logger) []CountryRecord {
	kept := make([]*geojson.Feature, 0, len(features))
	props := make([]geojson.Properties, 0, len(features))
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		kept = append(kept, f)
		props = append(props, idx.Reconcile(f))
	}
	if dropped := len(features) - len(kept); dropped > 0 {
		log.Debug("Dropped features without geometry", zap.Int("count", dropped))
	}

	if cls == nil {
		cls = SelectClassifier(nil, props...)
	}

	records := make([]CountryRecord, 0, len(kept))
	for i, f := range kept {
		p := props[i]
		result := cls.Explain(p)
		if result.Rule == RuleFallback {
			log.Debug("Continent fallback used",
				zap.Any("id", f.ID),
				zap.String("name", stringProp(p, propName)),
				zap.String("continent", string(result.Continent)),
			)
		}
		records = append(records, newCountryRecord(f, p, result.Continent))
	}
	return records
}

func newCountryRecord(f *geojson.Feature, p geojson.Properties, c Continent) CountryRecord {
	iso := isoProp(p, propISOA3)
	if iso == "" {
		iso = isoProp(p, propADM0A3)
	}
	if iso == "" {
		iso = isoProp(p, propADM0A3US)
	}

	name := stringProp(p, propNameLong)
	if name == "" {
		name = stringProp(p, propName)
	}
	if name == "" {
		name = unknownName
	}

	id := featureID(f.ID)
	if id == "" {
		id = iso
	}
	if id == "" {
		id = stringProp(p, propName)
	}
	if id == "" {
		id = name
	}

	shape := newCountryShape(f.Geometry)
	centroid := centroidOf(f.Geometry, shape)
	return CountryRecord{
		ID:        id,
		Name:      name,
		Continent: c,
		ISOA3:     iso,
		Geometry:  f.Geometry,
		Centroid:  centroid,
		Geohash:   geohashOf(centroid),
		shape:     shape,
	}
}

// Catalog is the immutable, query-ready view over a set of country records.
// All methods are safe for concurrent use. Returned slices share the
// catalog's backing arrays and must not be modified.
type Catalog struct {
	countries   []CountryRecord
	continents  []Continent
	byContinent map[Continent][]CountryRecord
	allSorted   []CountryRecord
	byKey       map[string]int // normalized id, ISO code -> index into countries
	shapes      []*countryShape
}

// NewCatalog builds every derived view once. records is retained, not copied.
func NewCatalog(records []CountryRecord) *Catalog {
	c := &Catalog{
		countries:   records,
		byContinent: make(map[Continent][]CountryRecord),
		byKey:       make(map[string]int, len(records)*2),
		shapes:      make([]*countryShape, len(records)),
	}

	// collate.Collator is not safe for concurrent use; it only lives here.
	col := collate.New(language.English)
	lessName := func(a, b CountryRecord) bool {
		return col.CompareString(a.Name, b.Name) < 0
	}

	for i, r := range records {
		c.byContinent[r.Continent] = append(c.byContinent[r.Continent], r)
		for _, k := range []string{r.ID, r.ISOA3} {
			if k = normalizeKey(k); k != "" {
				if _, taken := c.byKey[k]; !taken {
					c.byKey[k] = i
				}
			}
		}
		if r.shape == nil {
			// Snapshot and hand-built records carry no loops yet.
			r.shape = newCountryShape(r.Geometry)
		}
		c.shapes[i] = r.shape
	}

	for cont, list := range c.byContinent {
		sort.SliceStable(list, func(i, j int) bool { return lessName(list[i], list[j]) })
		c.continents = append(c.continents, cont)
	}
	sort.Slice(c.continents, func(i, j int) bool { return c.continents[i] < c.continents[j] })

	c.allSorted = make([]CountryRecord, len(records))
	copy(c.allSorted, records)
	sort.SliceStable(c.allSorted, func(i, j int) bool {
		a, b := c.allSorted[i], c.allSorted[j]
		if a.Continent != b.Continent {
			return a.Continent < b.Continent
		}
		return lessName(a, b)
	})
	return c
}

// Len returns the number of countries.
func (c *Catalog) Len() int { return len(c.countries) }

// Countries returns every record in source order.
func (c *Catalog) Countries() []CountryRecord { return c.countries }

// Continents returns the continents present in the data, ascending.
// A dataset without Antarctica yields six entries, not seven.
func (c *Catalog) Continents() []Continent { return c.continents }

// CountriesByContinent returns the per-continent lists, each sorted by name.
// The map is a fresh copy; the lists it holds are shared.
func (c *Catalog) CountriesByContinent() map[Continent][]CountryRecord {
	out := make(map[Continent][]CountryRecord, len(c.byContinent))
	for cont, list := range c.byContinent {
		out[cont] = list
	}
	return out
}

// CountriesIn returns the countries of one continent sorted by name, or nil.
func (c *Catalog) CountriesIn(cont Continent) []CountryRecord { return c.byContinent[cont] }

// AllSorted returns every record ordered by continent, then name.
func (c *Catalog) AllSorted() []CountryRecord { return c.allSorted }

// Country finds a record by id or ISO code, case-insensitively.
func (c *Catalog) Country(key string) (CountryRecord, bool) {
	i, ok := c.byKey[normalizeKey(key)]
	if !ok {
		return CountryRecord{}, false
	}
	return c.countries[i], true
}

// MaxFindDistance caps the edit distance accepted by Find.
const MaxFindDistance = 3

// Find searches by name, id or ISO code. Exact case-insensitive matches are
// returned when there are any; otherwise names within maxDistance edits,
// closest first. maxDistance is capped at MaxFindDistance; 0 disables fuzzy
// matching.
func (c *Catalog) Find(query string, maxDistance int) []CountryRecord {
	q := normalizeKey(query)
	if q == "" {
		return nil
	}

	var exact []CountryRecord
	for _, r := range c.allSorted {
		if normalizeKey(r.Name) == q || normalizeKey(r.ID) == q || normalizeKey(r.ISOA3) == q {
			exact = append(exact, r)
		}
	}
	if len(exact) > 0 || maxDistance <= 0 {
		return exact
	}
	if maxDistance > MaxFindDistance {
		maxDistance = MaxFindDistance
	}

	type hit struct {
		record CountryRecord
		dist   int
	}
	var hits []hit
	for _, r := range c.allSorted {
		if d := levenshtein.ComputeDistance(q, normalizeKey(r.Name)); d <= maxDistance {
			hits = append(hits, hit{record: r, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]CountryRecord, len(hits))
	for i, h := range hits {
		out[i] = h.record
	}
	return out
}

// CountryAt returns the country whose geometry contains the point.
func (c *Catalog) CountryAt(lat, lng float64) (CountryRecord, bool) {
	ll := s2.LatLngFromDegrees(lat, lng)
	if !ll.IsValid() {
		return CountryRecord{}, false
	}
	for i, shape := range c.shapes {
		if shape.contains(ll) {
			return c.countries[i], true
		}
	}
	return CountryRecord{}, false
}

// FeatureCollection returns every record as GeoJSON, in source order.
func (c *Catalog) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range c.countries {
		fc.Append(r.Feature())
	}
	return fc
}

// ValidateCatalog checks the catalog invariants and returns the first
// violation found.
func ValidateCatalog(c *Catalog) error {
	if c == nil {
		return fmt.Errorf("nil catalog")
	}
	for _, r := range c.countries {
		if !r.Continent.Valid() {
			return fmt.Errorf("country %q: invalid continent %q", r.ID, r.Continent)
		}
		if r.ID == "" {
			return fmt.Errorf("country %q: empty id", r.Name)
		}
		if r.Name == "" {
			return fmt.Errorf("country %q: empty name", r.ID)
		}
		if r.Geometry == nil {
			return fmt.Errorf("country %q: nil geometry", r.ID)
		}
	}
	for i := 1; i < len(c.continents); i++ {
		if c.continents[i-1] >= c.continents[i] {
			return fmt.Errorf("continents not strictly ascending at %d: %q, %q", i, c.continents[i-1], c.continents[i])
		}
	}
	col := collate.New(language.English)
	for cont, list := range c.byContinent {
		for i, r := range list {
			if r.Continent != cont {
				return fmt.Errorf("country %q listed under %q but classified %q", r.ID, cont, r.Continent)
			}
			if i > 0 && col.CompareString(list[i-1].Name, r.Name) > 0 {
				return fmt.Errorf("%s: %q sorted before %q", cont, list[i-1].Name, r.Name)
			}
		}
	}
	if len(c.allSorted) != len(c.countries) {
		return fmt.Errorf("sorted view has %d countries, want %d", len(c.allSorted), len(c.countries))
	}
	return nil
}

// String summarises the catalog, e.g. "177 countries in 7 continents".
func (c *Catalog) String() string {
	parts := make([]string, 0, len(c.continents))
	for _, cont := range c.continents {
		parts = append(parts, fmt.Sprintf("%s=%d", cont, len(c.byContinent[cont])))
	}
	return fmt.Sprintf("%d countries in %d continents (%s)", len(c.countries), len(c.continents), strings.Join(parts, ", "))
}
