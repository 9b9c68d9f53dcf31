package worldmap

import (
	"testing"

	"github.com/paulmach/orb/geojson"
)

func TestRuleClassifier_Classify(t *testing.T) {
	cls := NewRuleClassifier()

	tests := []struct {
		name  string
		props geojson.Properties
		want  Continent
		rule  string
	}{
		{
			name:  "continent field",
			props: geojson.Properties{"continent": "Africa", "name": "Kenya"},
			want:  Africa,
			rule:  propContinent,
		},
		{
			name:  "continent field is case-insensitive",
			props: geojson.Properties{"continent": "  SOUTH AMERICA "},
			want:  SouthAmerica,
			rule:  propContinent,
		},
		{
			name:  "americas refined to caribbean",
			props: geojson.Properties{"region_un": "Americas", "subregion": "Caribbean", "name": "Cuba"},
			want:  NorthAmerica,
			rule:  propRegionUN,
		},
		{
			name:  "americas refined to south america",
			props: geojson.Properties{"region_un": "Americas", "subregion": "South America", "name": "Brazil"},
			want:  SouthAmerica,
			rule:  propRegionUN,
		},
		{
			name:  "americas without subregion stays north america",
			props: geojson.Properties{"region_un": "Americas"},
			want:  NorthAmerica,
			rule:  propRegionUN,
		},
		{
			name:  "australia is oceania",
			props: geojson.Properties{"continent": "Australia", "subregion": "Australia and New Zealand"},
			want:  Oceania,
			rule:  propContinent,
		},
		{
			name:  "oceania refined by subregion",
			props: geojson.Properties{"continent": "Oceania", "subregion": "Western Asia"},
			want:  Asia,
			rule:  propContinent,
		},
		{
			name:  "seven seas",
			props: geojson.Properties{"continent": "Seven seas (open ocean)", "name": "Mauritius"},
			want:  Oceania,
			rule:  propContinent,
		},
		{
			name:  "europe is never refined",
			props: geojson.Properties{"continent": "Europe", "subregion": "Western Asia"},
			want:  Europe,
			rule:  propContinent,
		},
		{
			name:  "continent beats region",
			props: geojson.Properties{"continent": "Asia", "region_un": "Europe"},
			want:  Asia,
			rule:  propContinent,
		},
		{
			name:  "unknown continent falls through to region",
			props: geojson.Properties{"continent": "Atlantis", "region_un": "Africa"},
			want:  Africa,
			rule:  propRegionUN,
		},
		{
			name:  "subregion only",
			props: geojson.Properties{"subregion": "Melanesia"},
			want:  Oceania,
			rule:  propSubregion,
		},
		{
			name:  "region matched against subregion labels",
			props: geojson.Properties{"region_un": "Central America"},
			want:  NorthAmerica,
			rule:  propRegionUN,
		},
		{
			name:  "antarctica by name",
			props: geojson.Properties{"name": "Antarctica"},
			want:  Antarctica,
			rule:  propName,
		},
		{
			name:  "non-string fields are skipped",
			props: geojson.Properties{"continent": 42.0, "region_un": nil, "subregion": "Polynesia"},
			want:  Oceania,
			rule:  propSubregion,
		},
		{
			name:  "empty fields are skipped",
			props: geojson.Properties{"continent": "", "region_un": "", "subregion": "Southern Asia"},
			want:  Asia,
			rule:  propSubregion,
		},
		{
			name:  "nothing matches",
			props: geojson.Properties{"name": "Neverland"},
			want:  Europe,
			rule:  RuleFallback,
		},
		{
			name:  "no properties",
			props: nil,
			want:  Europe,
			rule:  RuleFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cls.Explain(tt.props)
			if got.Continent != tt.want {
				t.Errorf("Explain().Continent = %q, want %q", got.Continent, tt.want)
			}
			if got.Rule != tt.rule {
				t.Errorf("Explain().Rule = %q, want %q", got.Rule, tt.rule)
			}
			if c := cls.Classify(tt.props); c != got.Continent {
				t.Errorf("Classify() = %q, Explain() = %q", c, got.Continent)
			}
		})
	}
}

func TestRuleClassifier_ExplainReportsInput(t *testing.T) {
	got := NewRuleClassifier().Explain(geojson.Properties{"region_un": "Americas", "subregion": "Caribbean"})
	if got.Field != propRegionUN || got.Value != "Americas" {
		t.Errorf("Explain() = %+v, want field region_un value Americas", got)
	}

	got = NewRuleClassifier().Explain(geojson.Properties{})
	if got.Field != "" || got.Value != "" {
		t.Errorf("fallback Explain() = %+v, want empty field and value", got)
	}
}

func TestRuleClassifier_AntarcticaRule(t *testing.T) {
	// The name candidate already resolves "antarctica"; the dedicated rule
	// only sees names the label maps miss, and it is exact.
	c, ok := antarcticaRule(geojson.Properties{"name": "Antarctica"})
	if !ok || c.Continent != Antarctica {
		t.Errorf("antarcticaRule(Antarctica) = %v, %v", c, ok)
	}
	if _, ok := antarcticaRule(geojson.Properties{"name": "antarctica"}); ok {
		t.Error("antarcticaRule matched a lower-case name")
	}
	if _, ok := antarcticaRule(geojson.Properties{"name": "Antarctica "}); ok {
		t.Error("antarcticaRule matched a padded name")
	}
}

func TestRuleClassifier_Totality(t *testing.T) {
	cls := NewRuleClassifier()
	values := []any{nil, "", "x", "Americas", "Australia", "Caribbean", "Antarctica", "EUROPE", 1.0, true}
	for _, cont := range values {
		for _, region := range values {
			for _, sub := range values {
				for _, name := range values {
					p := geojson.Properties{"continent": cont, "region_un": region, "subregion": sub, "name": name}
					if got := cls.Classify(p); !got.Valid() {
						t.Fatalf("Classify(%v) = %q, not a continent", p, got)
					}
				}
			}
		}
	}
}

func TestLabelMaps(t *testing.T) {
	if len(primaryLabels) != 10 {
		t.Errorf("primary labels = %d, want 10", len(primaryLabels))
	}
	for label, c := range primaryLabels {
		if label != normalizeKey(label) || !c.Valid() {
			t.Errorf("primary label %q -> %q is not normalized or valid", label, c)
		}
	}
	for label, c := range subregionLabels {
		if label != normalizeKey(label) || !c.Valid() {
			t.Errorf("subregion label %q -> %q is not normalized or valid", label, c)
		}
	}
}

func TestSelectClassifier(t *testing.T) {
	table := NewTableClassifier(map[string]Continent{"Cuba": NorthAmerica})

	if _, ok := SelectClassifier(table).(*TableClassifier); !ok {
		t.Error("no properties: want table classifier")
	}
	if got := SelectClassifier(table, geojson.Properties{"name": "Cuba"}); got != Classifier(table) {
		t.Error("name-only properties: want the given table")
	}
	if _, ok := SelectClassifier(table,
		geojson.Properties{"name": "Cuba"},
		geojson.Properties{"subregion": "Caribbean"},
	).(*RuleClassifier); !ok {
		t.Error("region metadata: want rule classifier")
	}
	if got, ok := SelectClassifier(nil, geojson.Properties{"name": "Cuba"}).(*TableClassifier); !ok || got.Len() == 0 {
		t.Error("nil table: want the default table")
	}
}
