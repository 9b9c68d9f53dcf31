package worldmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrInvalidTopology is returned for input that is not a usable TopoJSON topology.
	ErrInvalidTopology = errors.New("worldmap: invalid topology")
	// ErrUnknownObject is returned when a named object is not in the topology.
	ErrUnknownObject = errors.New("worldmap: unknown topology object")
)

// Transform is the TopoJSON quantization transform.
type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// Topology is a decoded TopoJSON document. Arcs stay in their encoded form
// and are resolved when an object is converted to features.
type Topology struct {
	Type      string                     `json:"type"`
	Transform *Transform                 `json:"transform,omitempty"`
	BBox      []float64                  `json:"bbox,omitempty"`
	Arcs      [][][]float64              `json:"arcs"`
	Objects   map[string]*TopologyObject `json:"objects"`

	decoded [][]orb.Point
}

// TopologyObject is a TopoJSON geometry object. Arcs holds arc indexes whose
// nesting depends on Type; Coordinates holds quantized positions for point types.
type TopologyObject struct {
	Type        string             `json:"type"`
	ID          any                `json:"id,omitempty"`
	Properties  geojson.Properties `json:"properties,omitempty"`
	Arcs        json.RawMessage    `json:"arcs,omitempty"`
	Coordinates json.RawMessage    `json:"coordinates,omitempty"`
	Geometries  []*TopologyObject  `json:"geometries,omitempty"`
}

// DecodeTopology reads a TopoJSON topology and resolves its arcs.
func DecodeTopology(r io.Reader) (*Topology, error) {
	var t Topology
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}
	if t.Type != "Topology" {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidTopology, t.Type)
	}
	t.decodeArcs()
	return &t, nil
}

// ObjectNames lists the topology's objects in sorted order.
func (t *Topology) ObjectNames() []string {
	names := make([]string, 0, len(t.Objects))
	for name := range t.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasObject reports whether the named object exists.
func (t *Topology) HasObject(name string) bool {
	_, ok := t.Objects[name]
	return ok
}

// decodeArcs applies delta decoding and the transform once, up front.
func (t *Topology) decodeArcs() {
	t.decoded = make([][]orb.Point, len(t.Arcs))
	for i, arc := range t.Arcs {
		pts := make([]orb.Point, 0, len(arc))
		var x, y float64
		for _, pos := range arc {
			if len(pos) < 2 {
				continue
			}
			if t.Transform != nil {
				x += pos[0]
				y += pos[1]
				pts = append(pts, orb.Point{
					x*t.Transform.Scale[0] + t.Transform.Translate[0],
					y*t.Transform.Scale[1] + t.Transform.Translate[1],
				})
			} else {
				pts = append(pts, orb.Point{pos[0], pos[1]})
			}
		}
		t.decoded[i] = pts
	}
}

// position converts a quantized point-type position.
func (t *Topology) position(pos []float64) (orb.Point, error) {
	if len(pos) < 2 {
		return orb.Point{}, fmt.Errorf("%w: position with %d coordinates", ErrInvalidTopology, len(pos))
	}
	if t.Transform == nil {
		return orb.Point{pos[0], pos[1]}, nil
	}
	return orb.Point{
		pos[0]*t.Transform.Scale[0] + t.Transform.Translate[0],
		pos[1]*t.Transform.Scale[1] + t.Transform.Translate[1],
	}, nil
}

// FeatureCollection converts the named object into standalone features.
// A GeometryCollection yields one feature per member; any other object
// yields a single feature. Null geometries yield features with a nil Geometry.
func (t *Topology) FeatureCollection(name string) (*geojson.FeatureCollection, error) {
	obj, ok := t.Objects[name]
	if !ok || obj == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}

	fc := geojson.NewFeatureCollection()
	members := []*TopologyObject{obj}
	if obj.Type == "GeometryCollection" {
		members = obj.Geometries
	}
	for _, m := range members {
		if m == nil {
			continue
		}
		f, err := t.feature(m)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", name, err)
		}
		fc.Append(f)
	}
	return fc, nil
}

func (t *Topology) feature(o *TopologyObject) (*geojson.Feature, error) {
	g, err := t.geometry(o)
	if err != nil {
		return nil, err
	}
	f := &geojson.Feature{
		ID:         o.ID,
		Type:       "Feature",
		Geometry:   g,
		Properties: o.Properties,
	}
	if f.Properties == nil {
		f.Properties = geojson.Properties{}
	}
	return f, nil
}

func (t *Topology) geometry(o *TopologyObject) (orb.Geometry, error) {
	switch o.Type {
	case "", "null":
		return nil, nil
	case "Point":
		var pos []float64
		if err := unmarshalField(o.Coordinates, &pos); err != nil {
			return nil, err
		}
		return t.position(pos)
	case "MultiPoint":
		var positions [][]float64
		if err := unmarshalField(o.Coordinates, &positions); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPoint, 0, len(positions))
		for _, pos := range positions {
			p, err := t.position(pos)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "LineString":
		var arcs []int
		if err := unmarshalField(o.Arcs, &arcs); err != nil {
			return nil, err
		}
		pts, err := t.line(arcs)
		if err != nil {
			return nil, err
		}
		return orb.LineString(pts), nil
	case "MultiLineString":
		var lines [][]int
		if err := unmarshalField(o.Arcs, &lines); err != nil {
			return nil, err
		}
		mls := make(orb.MultiLineString, 0, len(lines))
		for _, arcs := range lines {
			pts, err := t.line(arcs)
			if err != nil {
				return nil, err
			}
			mls = append(mls, orb.LineString(pts))
		}
		return mls, nil
	case "Polygon":
		var rings [][]int
		if err := unmarshalField(o.Arcs, &rings); err != nil {
			return nil, err
		}
		return t.polygon(rings)
	case "MultiPolygon":
		var polys [][][]int
		if err := unmarshalField(o.Arcs, &polys); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := t.polygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "GeometryCollection":
		col := make(orb.Collection, 0, len(o.Geometries))
		for _, sub := range o.Geometries {
			if sub == nil {
				continue
			}
			g, err := t.geometry(sub)
			if err != nil {
				return nil, err
			}
			if g != nil {
				col = append(col, g)
			}
		}
		return col, nil
	default:
		return nil, fmt.Errorf("%w: geometry type %q", ErrInvalidTopology, o.Type)
	}
}

func (t *Topology) polygon(rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, arcs := range rings {
		pts, err := t.line(arcs)
		if err != nil {
			return nil, err
		}
		// Degenerate rings are padded to four points so they stay closed.
		for len(pts) > 0 && len(pts) < 4 {
			pts = append(pts, pts[0])
		}
		poly = append(poly, orb.Ring(pts))
	}
	return poly, nil
}

// line stitches arcs together. A negative index ~i means arc i reversed.
// Consecutive arcs share their joining point, which is kept once.
func (t *Topology) line(arcs []int) ([]orb.Point, error) {
	var pts []orb.Point
	for _, idx := range arcs {
		reversed := idx < 0
		if reversed {
			idx = ^idx
		}
		if idx >= len(t.decoded) {
			return nil, fmt.Errorf("%w: arc index %d out of range (%d arcs)", ErrInvalidTopology, idx, len(t.decoded))
		}
		arc := t.decoded[idx]
		if len(pts) > 0 {
			pts = pts[:len(pts)-1]
		}
		if reversed {
			for i := len(arc) - 1; i >= 0; i-- {
				pts = append(pts, arc[i])
			}
		} else {
			pts = append(pts, arc...)
		}
	}
	return pts, nil
}

func unmarshalField(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing arcs or coordinates", ErrInvalidTopology)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}
	return nil
}
