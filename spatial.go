package worldmap

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// geohashPrecision of 5 gives cells of roughly 5km x 5km, plenty for a
// country centroid.
const geohashPrecision = 5

// shapePolygon is one polygon of a country on the sphere. Loops are
// normalized so each encloses at most half the sphere, which makes ring
// winding order in the source data irrelevant.
type shapePolygon struct {
	outer *s2.Loop
	holes []*s2.Loop
}

// countryShape is the spherical form of a record's geometry, used for
// point lookup.
type countryShape struct {
	polygons []shapePolygon
	rect     s2.Rect
}

// newCountryShape converts polygonal geometry to s2 loops. Geometry without
// any usable ring yields nil.
func newCountryShape(g orb.Geometry) *countryShape {
	shape := &countryShape{rect: s2.EmptyRect()}
	for _, poly := range polygonsOf(g) {
		if len(poly) == 0 {
			continue
		}
		outer := loopFromRing(poly[0])
		if outer == nil {
			continue
		}
		sp := shapePolygon{outer: outer}
		for _, ring := range poly[1:] {
			if hole := loopFromRing(ring); hole != nil {
				sp.holes = append(sp.holes, hole)
			}
		}
		shape.polygons = append(shape.polygons, sp)
		shape.rect = shape.rect.Union(outer.RectBound())
	}
	if len(shape.polygons) == 0 {
		return nil
	}
	return shape
}

// contains reports whether the point lies inside any polygon and outside
// that polygon's holes.
func (s *countryShape) contains(ll s2.LatLng) bool {
	if s == nil || !s.rect.ContainsLatLng(ll) {
		return false
	}
	p := s2.PointFromLatLng(ll)
	for _, sp := range s.polygons {
		if !sp.outer.ContainsPoint(p) {
			continue
		}
		inHole := false
		for _, h := range sp.holes {
			if h.ContainsPoint(p) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// centroid returns the area-weighted spherical centroid as [lng, lat].
func (s *countryShape) centroid() (orb.Point, bool) {
	if s == nil {
		return orb.Point{}, false
	}
	var sum r3.Vector
	for _, sp := range s.polygons {
		sum = sum.Add(sp.outer.Centroid().Vector)
		for _, h := range sp.holes {
			sum = sum.Sub(h.Centroid().Vector)
		}
	}
	if sum.Norm() == 0 {
		return orb.Point{}, false
	}
	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()}, true
}

// centroidOf prefers the spherical centroid and falls back to the planar one
// for geometry that has no polygon (points, lines).
func centroidOf(g orb.Geometry, shape *countryShape) orb.Point {
	if c, ok := shape.centroid(); ok {
		return c
	}
	if g == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(g)
	return c
}

// geohashOf encodes a [lng, lat] point.
func geohashOf(p orb.Point) string {
	return geohash.EncodeWithPrecision(p.Lat(), p.Lon(), geohashPrecision)
}

// polygonsOf flattens polygonal geometry. Non-polygonal geometry yields nothing.
func polygonsOf(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return v
	case orb.Collection:
		var out []orb.Polygon
		for _, sub := range v {
			out = append(out, polygonsOf(sub)...)
		}
		return out
	default:
		return nil
	}
}

// loopFromRing builds a normalized loop from a closed [lng, lat] ring.
// Repeated vertices (including the closing one and runs along a pole) are
// dropped; fewer than three distinct vertices yields nil.
func loopFromRing(r orb.Ring) *s2.Loop {
	pts := make([]s2.Point, 0, len(r))
	for _, p := range r {
		sp := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
		if n := len(pts); n > 0 && pts[n-1].ApproxEqual(sp) {
			continue
		}
		pts = append(pts, sp)
	}
	for len(pts) > 1 && pts[0].ApproxEqual(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}
	l := s2.LoopFromPoints(pts)
	l.Normalize()
	return l
}
