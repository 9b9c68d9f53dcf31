package worldmap

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// TableClassifier classifies name-only records with an exact name lookup.
// Any miss resolves to FallbackContinent.
type TableClassifier struct {
	byName map[string]Continent
}

// NewTableClassifier copies entries into a new table. Entries with an
// invalid continent are skipped.
func NewTableClassifier(entries map[string]Continent) *TableClassifier {
	t := &TableClassifier{byName: make(map[string]Continent, len(entries))}
	for name, c := range entries {
		if name != "" && c.Valid() {
			t.byName[name] = c
		}
	}
	return t
}

// Len returns the number of names in the table.
func (t *TableClassifier) Len() int { return len(t.byName) }

// Lookup returns the continent for an exact name.
func (t *TableClassifier) Lookup(name string) (Continent, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// Merge adds the entries of other whose names are not yet present.
// Existing names keep their continent.
func (t *TableClassifier) Merge(other *TableClassifier) {
	if other == nil {
		return
	}
	for name, c := range other.byName {
		if _, ok := t.byName[name]; !ok {
			t.byName[name] = c
		}
	}
}

// Classify implements Classifier.
func (t *TableClassifier) Classify(p geojson.Properties) Continent {
	return t.Explain(p).Continent
}

// Explain implements Classifier.
func (t *TableClassifier) Explain(p geojson.Properties) Classification {
	name := stringProp(p, propName)
	if c, ok := t.byName[name]; ok {
		return Classification{Continent: c, Rule: RuleTable, Field: propName, Value: name}
	}
	return Classification{Continent: FallbackContinent, Rule: RuleFallback}
}

// countryInfoFields is the column count of GeoNames countryInfo.txt.
const countryInfoFields = 19

// LoadCountryInfoTable builds a name table from a GeoNames countryInfo.txt
// stream. Comment lines and rows with an unknown continent code are skipped.
//
// Columns used: 4 (Country) and 8 (Continent).
func LoadCountryInfoTable(r io.Reader) (*TableClassifier, error) {
	t := &TableClassifier{byName: make(map[string]Continent, 256)}

	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		fields := strings.SplitN(line, "\t", countryInfoFields)
		if len(fields) != countryInfoFields || fields[0] == "" || fields[4] == "" {
			continue
		}

		c, ok := geonamesContinentCodes[strings.TrimSpace(fields[8])]
		if !ok {
			continue
		}
		if _, exists := t.byName[fields[4]]; !exists {
			t.byName[fields[4]] = c
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading country info: %w", err)
	}
	return t, nil
}

// DefaultTable returns a table covering every country name in the
// world-atlas Natural Earth 1:110m topology.
func DefaultTable() *TableClassifier {
	return NewTableClassifier(naturalEarth110m)
}

// naturalEarth110m uses the abbreviated names of the world-atlas countries layer.
var naturalEarth110m = map[string]Continent{
	// Africa
	"Algeria":              Africa,
	"Angola":               Africa,
	"Benin":                Africa,
	"Botswana":             Africa,
	"Burkina Faso":         Africa,
	"Burundi":              Africa,
	"Cameroon":             Africa,
	"Central African Rep.": Africa,
	"Chad":                 Africa,
	"Congo":                Africa,
	"Côte d'Ivoire":        Africa,
	"Dem. Rep. Congo":      Africa,
	"Djibouti":             Africa,
	"Egypt":                Africa,
	"Eq. Guinea":           Africa,
	"Eritrea":              Africa,
	"eSwatini":             Africa,
	"Ethiopia":             Africa,
	"Gabon":                Africa,
	"Gambia":               Africa,
	"Ghana":                Africa,
	"Guinea":               Africa,
	"Guinea-Bissau":        Africa,
	"Kenya":                Africa,
	"Lesotho":              Africa,
	"Liberia":              Africa,
	"Libya":                Africa,
	"Madagascar":           Africa,
	"Malawi":               Africa,
	"Mali":                 Africa,
	"Mauritania":           Africa,
	"Morocco":              Africa,
	"Mozambique":           Africa,
	"Namibia":              Africa,
	"Niger":                Africa,
	"Nigeria":              Africa,
	"Rwanda":               Africa,
	"S. Sudan":             Africa,
	"Senegal":              Africa,
	"Sierra Leone":         Africa,
	"Somalia":              Africa,
	"Somaliland":           Africa,
	"South Africa":         Africa,
	"Sudan":                Africa,
	"Tanzania":             Africa,
	"Togo":                 Africa,
	"Tunisia":              Africa,
	"Uganda":               Africa,
	"W. Sahara":            Africa,
	"Zambia":               Africa,
	"Zimbabwe":             Africa,

	// Antarctica
	"Antarctica":             Antarctica,
	"Fr. S. Antarctic Lands": Antarctica,

	// Asia
	"Afghanistan":          Asia,
	"Armenia":              Asia,
	"Azerbaijan":           Asia,
	"Bangladesh":           Asia,
	"Bhutan":               Asia,
	"Brunei":               Asia,
	"Cambodia":             Asia,
	"China":                Asia,
	"Cyprus":               Asia,
	"Georgia":              Asia,
	"India":                Asia,
	"Indonesia":            Asia,
	"Iran":                 Asia,
	"Iraq":                 Asia,
	"Israel":               Asia,
	"Japan":                Asia,
	"Jordan":               Asia,
	"Kazakhstan":           Asia,
	"Kuwait":               Asia,
	"Kyrgyzstan":           Asia,
	"Laos":                 Asia,
	"Lebanon":              Asia,
	"Malaysia":             Asia,
	"Mongolia":             Asia,
	"Myanmar":              Asia,
	"N. Cyprus":            Asia,
	"Nepal":                Asia,
	"North Korea":          Asia,
	"Oman":                 Asia,
	"Pakistan":             Asia,
	"Palestine":            Asia,
	"Philippines":          Asia,
	"Qatar":                Asia,
	"Saudi Arabia":         Asia,
	"South Korea":          Asia,
	"Sri Lanka":            Asia,
	"Syria":                Asia,
	"Taiwan":               Asia,
	"Tajikistan":           Asia,
	"Thailand":             Asia,
	"Timor-Leste":          Asia,
	"Turkey":               Asia,
	"Turkmenistan":         Asia,
	"United Arab Emirates": Asia,
	"Uzbekistan":           Asia,
	"Vietnam":              Asia,
	"Yemen":                Asia,

	// Europe
	"Albania":          Europe,
	"Austria":          Europe,
	"Belarus":          Europe,
	"Belgium":          Europe,
	"Bosnia and Herz.": Europe,
	"Bulgaria":         Europe,
	"Croatia":          Europe,
	"Czechia":          Europe,
	"Denmark":          Europe,
	"Estonia":          Europe,
	"Finland":          Europe,
	"France":           Europe,
	"Germany":          Europe,
	"Greece":           Europe,
	"Hungary":          Europe,
	"Iceland":          Europe,
	"Ireland":          Europe,
	"Italy":            Europe,
	"Kosovo":           Europe,
	"Latvia":           Europe,
	"Lithuania":        Europe,
	"Luxembourg":       Europe,
	"Macedonia":        Europe,
	"Moldova":          Europe,
	"Montenegro":       Europe,
	"Netherlands":      Europe,
	"North Macedonia":  Europe,
	"Norway":           Europe,
	"Poland":           Europe,
	"Portugal":         Europe,
	"Romania":          Europe,
	"Russia":           Europe,
	"Serbia":           Europe,
	"Slovakia":         Europe,
	"Slovenia":         Europe,
	"Spain":            Europe,
	"Sweden":           Europe,
	"Switzerland":      Europe,
	"Ukraine":          Europe,
	"United Kingdom":   Europe,

	// North America
	"Bahamas":                  NorthAmerica,
	"Belize":                   NorthAmerica,
	"Canada":                   NorthAmerica,
	"Costa Rica":               NorthAmerica,
	"Cuba":                     NorthAmerica,
	"Dominican Rep.":           NorthAmerica,
	"El Salvador":              NorthAmerica,
	"Greenland":                NorthAmerica,
	"Guatemala":                NorthAmerica,
	"Haiti":                    NorthAmerica,
	"Honduras":                 NorthAmerica,
	"Jamaica":                  NorthAmerica,
	"Mexico":                   NorthAmerica,
	"Nicaragua":                NorthAmerica,
	"Panama":                   NorthAmerica,
	"Puerto Rico":              NorthAmerica,
	"Trinidad and Tobago":      NorthAmerica,
	"United States of America": NorthAmerica,

	// Oceania
	"Australia":        Oceania,
	"Fiji":             Oceania,
	"New Caledonia":    Oceania,
	"New Zealand":      Oceania,
	"Papua New Guinea": Oceania,
	"Solomon Is.":      Oceania,
	"Vanuatu":          Oceania,

	// South America
	"Argentina":    SouthAmerica,
	"Bolivia":      SouthAmerica,
	"Brazil":       SouthAmerica,
	"Chile":        SouthAmerica,
	"Colombia":     SouthAmerica,
	"Ecuador":      SouthAmerica,
	"Falkland Is.": SouthAmerica,
	"Guyana":       SouthAmerica,
	"Paraguay":     SouthAmerica,
	"Peru":         SouthAmerica,
	"Suriname":     SouthAmerica,
	"Uruguay":      SouthAmerica,
	"Venezuela":    SouthAmerica,
}
