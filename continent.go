package worldmap

import "strings"

// Continent is one of the seven continents a country can be classified into.
// No other value is ever produced by a Classifier.
type Continent string

const (
	Africa       Continent = "Africa"
	Antarctica   Continent = "Antarctica"
	Asia         Continent = "Asia"
	Europe       Continent = "Europe"
	NorthAmerica Continent = "North America"
	Oceania      Continent = "Oceania"
	SouthAmerica Continent = "South America"
)

// allContinents is in ascending lexicographic order.
var allContinents = []Continent{
	Africa,
	Antarctica,
	Asia,
	Europe,
	NorthAmerica,
	Oceania,
	SouthAmerica,
}

// Continents returns all seven continents in ascending order.
func Continents() []Continent {
	out := make([]Continent, len(allContinents))
	copy(out, allContinents)
	return out
}

// Valid reports whether c is one of the seven continents.
func (c Continent) Valid() bool {
	for _, v := range allContinents {
		if c == v {
			return true
		}
	}
	return false
}

// Slug returns a URL-friendly form, e.g. "north-america".
func (c Continent) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "-")
}

func (c Continent) String() string { return string(c) }

// ParseContinent resolves a continent name or slug case-insensitively.
// "North America", "north america", "north-america" and "north_america" all
// resolve to NorthAmerica.
func ParseContinent(s string) (Continent, bool) {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(normalizeKey(s))
	for _, c := range allContinents {
		if strings.ToLower(string(c)) == s {
			return c, true
		}
	}
	return "", false
}

// geonamesContinentCodes maps the continent column of GeoNames countryInfo.txt.
var geonamesContinentCodes = map[string]Continent{
	"AF": Africa,
	"AN": Antarctica,
	"AS": Asia,
	"EU": Europe,
	"NA": NorthAmerica,
	"OC": Oceania,
	"SA": SouthAmerica,
}
