package worldmap

import (
	"github.com/paulmach/orb/geojson"
)

// Classifier resolves exactly one Continent from a (possibly reconciled)
// property bag. Implementations are total: they never return an empty or
// unknown Continent.
type Classifier interface {
	Classify(p geojson.Properties) Continent
	Explain(p geojson.Properties) Classification
}

// Classification records which rule decided a continent and on what input.
type Classification struct {
	Continent Continent
	Rule      string // rule name, e.g. "region_un", "table", "fallback"
	Field     string // property that matched; empty for fallbacks
	Value     string // raw property value that matched
}

// Rule names reported in Classification.Rule.
const (
	RuleAntarctica = "antarctica"
	RuleFallback   = "fallback"
	RuleTable      = "table"
)

// FallbackContinent is returned when nothing else matches. Europe is the most
// common continent among records with missing metadata in Natural Earth.
const FallbackContinent = Europe

// primaryLabels maps direct continent-ish labels. "americas" and "australia"
// are coarser than the seven-continent model and are refined by subregion.
var primaryLabels = map[string]Continent{
	"africa":                  Africa,
	"antarctica":              Antarctica,
	"asia":                    Asia,
	"europe":                  Europe,
	"oceania":                 Oceania,
	"australia":               Oceania,
	"north america":           NorthAmerica,
	"south america":           SouthAmerica,
	"americas":                NorthAmerica,
	"seven seas (open ocean)": Oceania,
}

// subregionLabels maps UN subregions.
var subregionLabels = map[string]Continent{
	"caribbean":                 NorthAmerica,
	"central america":           NorthAmerica,
	"northern america":          NorthAmerica,
	"south america":             SouthAmerica,
	"western asia":              Asia,
	"middle africa":             Africa,
	"eastern africa":            Africa,
	"northern africa":           Africa,
	"southern africa":           Africa,
	"western africa":            Africa,
	"central asia":              Asia,
	"southern asia":             Asia,
	"eastern asia":              Asia,
	"south-eastern asia":        Asia,
	"australia and new zealand": Oceania,
	"melanesia":                 Oceania,
	"micronesia":                Oceania,
	"polynesia":                 Oceania,
	"western europe":            Europe,
	"eastern europe":            Europe,
	"northern europe":           Europe,
	"southern europe":           Europe,
}

// rule is one step of the cascade. resolve reports ok=false to pass the
// record on to the next rule.
type rule struct {
	name    string
	resolve func(p geojson.Properties) (Classification, bool)
}

// RuleClassifier classifies rich Natural Earth metadata with an ordered,
// first-match-wins cascade:
//
//  1. continent, region_un, subregion, name: each looked up in the primary
//     labels (with the subregion override for North America and Oceania),
//     then in the subregion labels
//  2. name exactly "Antarctica"
//  3. Europe
type RuleClassifier struct {
	rules []rule
}

// NewRuleClassifier returns the default cascade.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{rules: []rule{
		{name: propContinent, resolve: candidateRule(propContinent)},
		{name: propRegionUN, resolve: candidateRule(propRegionUN)},
		{name: propSubregion, resolve: candidateRule(propSubregion)},
		{name: propName, resolve: candidateRule(propName)},
		{name: RuleAntarctica, resolve: antarcticaRule},
		{name: RuleFallback, resolve: fallbackRule},
	}}
}

// Classify implements Classifier.
func (rc *RuleClassifier) Classify(p geojson.Properties) Continent {
	return rc.Explain(p).Continent
}

// Explain implements Classifier.
func (rc *RuleClassifier) Explain(p geojson.Properties) Classification {
	for _, r := range rc.rules {
		if c, ok := r.resolve(p); ok {
			c.Rule = r.name
			return c
		}
	}
	// Unreachable with the default rules; fallbackRule always matches.
	return Classification{Continent: FallbackContinent, Rule: RuleFallback}
}

// candidateRule tests one property against the primary labels, then the
// subregion labels.
func candidateRule(field string) func(p geojson.Properties) (Classification, bool) {
	return func(p geojson.Properties) (Classification, bool) {
		raw := stringProp(p, field)
		if raw == "" {
			return Classification{}, false
		}
		label := normalizeKey(raw)
		if c, ok := primaryLabels[label]; ok {
			if c == NorthAmerica || c == Oceania {
				if refined, ok := subregionLabels[normalizeKey(stringProp(p, propSubregion))]; ok {
					c = refined
				}
			}
			return Classification{Continent: c, Field: field, Value: raw}, true
		}
		if c, ok := subregionLabels[label]; ok {
			return Classification{Continent: c, Field: field, Value: raw}, true
		}
		return Classification{}, false
	}
}

// antarcticaRule catches the Antarctica feature when it ships without any
// continent metadata.
func antarcticaRule(p geojson.Properties) (Classification, bool) {
	if stringProp(p, propName) == string(Antarctica) {
		return Classification{Continent: Antarctica, Field: propName, Value: string(Antarctica)}, true
	}
	return Classification{}, false
}

func fallbackRule(geojson.Properties) (Classification, bool) {
	return Classification{Continent: FallbackContinent}, true
}

// hasRegionMetadata reports whether p carries any field the rule cascade
// reads besides the name.
func hasRegionMetadata(p geojson.Properties) bool {
	return stringProp(p, propContinent) != "" ||
		stringProp(p, propRegionUN) != "" ||
		stringProp(p, propSubregion) != ""
}

// SelectClassifier picks the rule cascade when any record carries continent,
// region or subregion metadata, and the name table otherwise.
func SelectClassifier(table *TableClassifier, props ...geojson.Properties) Classifier {
	for _, p := range props {
		if hasRegionMetadata(p) {
			return NewRuleClassifier()
		}
	}
	if table == nil {
		table = DefaultTable()
	}
	return table
}
