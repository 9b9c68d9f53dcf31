package worldmap

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Property keys read from Natural Earth style feature properties. Every key is
// looked up in its lower-cased form; NormalizeProperties guarantees that form
// exists whatever casing the dataset vintage used.
const (
	propName      = "name"
	propNameLong  = "name_long"
	propFormalEN  = "formal_en"
	propGeounit   = "geounit"
	propISOA3     = "iso_a3"
	propADM0A3    = "adm0_a3"
	propADM0A3US  = "adm0_a3_us"
	propContinent = "continent"
	propRegionUN  = "region_un"
	propSubregion = "subregion"
)

// unknownName is the display name of a record that has neither name_long nor name.
const unknownName = "Unknown"

// normalizeKey is applied to every lookup key on both insertion and lookup.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeProperties returns a copy of p in which every key is also present
// under its lower-cased form. A lower-case key that already exists keeps its
// own value. A nil map yields an empty, non-nil map.
func NormalizeProperties(p geojson.Properties) geojson.Properties {
	out := make(geojson.Properties, len(p)*2)
	for k, v := range p {
		out[k] = v
	}
	// Sorted so that "NAME" and "Name" resolve the same way on every run.
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lower := strings.ToLower(k)
		if _, ok := out[lower]; !ok {
			out[lower] = p[k]
		}
	}
	return out
}

// stringProp returns the property as a string, or "" when it is missing,
// empty or not a string.
func stringProp(p geojson.Properties, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// isoProp is stringProp with surrounding blanks removed. Natural Earth's
// "-99" placeholder is a code like any other.
func isoProp(p geojson.Properties, key string) string {
	return strings.TrimSpace(stringProp(p, key))
}

// featureID renders a feature identifier as a string. GeoJSON and TopoJSON
// allow either strings or numbers; nil yields "".
func featureID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
