package worldmap

import (
	"github.com/paulmach/orb/geojson"
)

// metadataKeys are the properties a metadata record is registered under, in
// addition to its feature id.
var metadataKeys = []string{
	propISOA3,
	propADM0A3,
	propADM0A3US,
	propName,
	propNameLong,
	propFormalEN,
	propGeounit,
}

// matchKeys are the geometry record properties tried, in order, after the
// feature id.
var matchKeys = []string{
	propISOA3,
	propName,
	propNameLong,
}

// MetadataIndex maps every plausible identifying string of an admin-boundaries
// record to that record's normalized properties.
//
// Registration is first-write-wins: when two records claim the same key the
// record indexed first keeps it. Match quality is never scored.
//
// A nil *MetadataIndex is valid and matches nothing.
type MetadataIndex struct {
	byKey   map[string]geojson.Properties
	records int
}

// NewMetadataIndex indexes the metadata features in order.
func NewMetadataIndex(features []*geojson.Feature) *MetadataIndex {
	idx := &MetadataIndex{byKey: make(map[string]geojson.Properties, len(features)*len(metadataKeys))}
	for _, f := range features {
		if f == nil {
			continue
		}
		idx.add(f)
	}
	return idx
}

func (idx *MetadataIndex) add(f *geojson.Feature) {
	props := NormalizeProperties(f.Properties)
	idx.records++

	if id := featureID(f.ID); id != "" {
		idx.register(id, props)
	}
	for _, key := range metadataKeys {
		var v string
		switch key {
		case propISOA3, propADM0A3, propADM0A3US:
			v = isoProp(props, key)
		default:
			v = stringProp(props, key)
		}
		if v != "" {
			idx.register(v, props)
		}
	}
}

func (idx *MetadataIndex) register(key string, props geojson.Properties) {
	k := normalizeKey(key)
	if k == "" {
		return
	}
	if _, taken := idx.byKey[k]; taken {
		return
	}
	idx.byKey[k] = props
}

// Len returns the number of indexed metadata records.
func (idx *MetadataIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.records
}

// Keys returns the number of distinct lookup keys.
func (idx *MetadataIndex) Keys() int {
	if idx == nil {
		return 0
	}
	return len(idx.byKey)
}

// Lookup returns the metadata registered under key, case-insensitively.
func (idx *MetadataIndex) Lookup(key string) (geojson.Properties, bool) {
	if idx == nil {
		return nil, false
	}
	k := normalizeKey(key)
	if k == "" {
		return nil, false
	}
	p, ok := idx.byKey[k]
	return p, ok
}

// Match finds the metadata for a geometry feature by trying its feature id,
// iso_a3, name and name_long in that order.
func (idx *MetadataIndex) Match(f *geojson.Feature) (geojson.Properties, bool) {
	if idx == nil || f == nil {
		return nil, false
	}
	if p, ok := idx.Lookup(featureID(f.ID)); ok {
		return p, true
	}
	own := NormalizeProperties(f.Properties)
	for _, key := range matchKeys {
		var v string
		if key == propISOA3 {
			v = isoProp(own, key)
		} else {
			v = stringProp(own, key)
		}
		if p, ok := idx.Lookup(v); ok {
			return p, true
		}
	}
	return nil, false
}

// Reconcile returns the properties to classify f with: the matched metadata
// overlaid by f's own properties, so the geometry record wins on every key it
// defines. Without a match f's own properties are used unchanged. The result
// is always normalized.
func (idx *MetadataIndex) Reconcile(f *geojson.Feature) geojson.Properties {
	if f == nil {
		return geojson.Properties{}
	}
	own := NormalizeProperties(f.Properties)
	meta, ok := idx.Match(f)
	if !ok {
		return own
	}

	merged := make(geojson.Properties, len(meta)+len(own))
	for k, v := range meta {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	return NormalizeProperties(merged)
}
