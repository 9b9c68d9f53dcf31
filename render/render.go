// Package render fits country geometry into a pixel box and emits SVG.
//
// It is the projection boundary the catalog's consumers use: given a
// geometry and a target size it produces an outline path and a centroid.
// Projection math is delegated to orb/project.
package render

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/andreiashu/worldmap"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// Outline preview size and padding used for printable country outlines.
const (
	DefaultOutlineWidth   = 320
	DefaultOutlineHeight  = 200
	DefaultOutlinePadding = 20
)

// maxMercatorLat keeps Web Mercator finite; Antarctica reaches -90.
const maxMercatorLat = 85.05112878

// ErrEmptyGeometry is returned for nil geometry or geometry without extent.
var ErrEmptyGeometry = errors.New("render: empty geometry")

// Projector turns a geometry into an outline fitted to width x height pixels.
type Projector interface {
	Project(g orb.Geometry, width, height float64) (Outline, error)
}

// Outline is a projected geometry in pixel space, Y growing downwards.
type Outline struct {
	Path     string    // SVG path data
	Centroid orb.Point // pixel centroid
	Bound    orb.Bound // pixel bound of the drawn geometry
	Geometry orb.Geometry
}

// Fitter projects with Projection and scales the result uniformly to fit the
// box minus Padding on every side, centred.
type Fitter struct {
	Projection orb.Projection
	Padding    float64
}

// NewMercator returns a Web Mercator fitter with the outline padding.
func NewMercator() *Fitter {
	return &Fitter{Projection: mercator, Padding: DefaultOutlinePadding}
}

func mercator(p orb.Point) orb.Point {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p[1]))
	return project.WGS84.ToMercator(orb.Point{p[0], lat})
}

// Transform returns the projection mapping [lng, lat] straight to pixels so
// that g fits the box. Use it to draw several geometries on one shared frame.
func (f *Fitter) Transform(g orb.Geometry, width, height float64) (orb.Projection, error) {
	if g == nil {
		return nil, ErrEmptyGeometry
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid size %vx%v", width, height)
	}

	proj := f.Projection
	if proj == nil {
		proj = mercator
	}
	b := project.Geometry(orb.Clone(g), proj).Bound()
	dx, dy := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	// An empty collection reports an inverted bound.
	if math.IsNaN(dx) || math.IsNaN(dy) || dx < 0 || dy < 0 || (dx == 0 && dy == 0) {
		return nil, ErrEmptyGeometry
	}

	innerW := math.Max(width-2*f.Padding, 1)
	innerH := math.Max(height-2*f.Padding, 1)
	scale := math.Inf(1)
	if dx > 0 {
		scale = innerW / dx
	}
	if dy > 0 {
		scale = math.Min(scale, innerH/dy)
	}
	offX := f.Padding + (innerW-dx*scale)/2
	offY := f.Padding + (innerH-dy*scale)/2

	return func(p orb.Point) orb.Point {
		q := proj(p)
		return orb.Point{
			offX + (q[0]-b.Min[0])*scale,
			offY + (b.Max[1]-q[1])*scale,
		}
	}, nil
}

// Project implements Projector.
func (f *Fitter) Project(g orb.Geometry, width, height float64) (Outline, error) {
	toPixels, err := f.Transform(g, width, height)
	if err != nil {
		return Outline{}, err
	}
	return outline(g, toPixels), nil
}

// outline applies toPixels to a copy of g.
func outline(g orb.Geometry, toPixels orb.Projection) Outline {
	pixels := project.Geometry(orb.Clone(g), toPixels)
	centroid, _ := planar.CentroidArea(pixels)
	return Outline{
		Path:     PathData(pixels),
		Centroid: centroid,
		Bound:    pixels.Bound(),
		Geometry: pixels,
	}
}

// PathData renders pixel-space geometry as SVG path data. Rings are closed
// with Z; lines are left open; points become zero-length moves.
func PathData(g orb.Geometry) string {
	var sb strings.Builder
	writePath(&sb, g)
	return sb.String()
}

func writePath(sb *strings.Builder, g orb.Geometry) {
	switch v := g.(type) {
	case orb.Point:
		writeLine(sb, []orb.Point{v}, false)
	case orb.MultiPoint:
		for _, p := range v {
			writeLine(sb, []orb.Point{p}, false)
		}
	case orb.LineString:
		writeLine(sb, v, false)
	case orb.MultiLineString:
		for _, ls := range v {
			writeLine(sb, ls, false)
		}
	case orb.Ring:
		writeLine(sb, v, true)
	case orb.Polygon:
		for _, r := range v {
			writeLine(sb, r, true)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			writePath(sb, p)
		}
	case orb.Collection:
		for _, sub := range v {
			writePath(sb, sub)
		}
	}
}

func writeLine(sb *strings.Builder, pts []orb.Point, closed bool) {
	if len(pts) == 0 {
		return
	}
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	for i, p := range pts {
		if i == 0 {
			sb.WriteByte('M')
		} else {
			sb.WriteByte('L')
		}
		sb.WriteString(formatCoord(p[0]))
		sb.WriteByte(',')
		sb.WriteString(formatCoord(p[1]))
	}
	if closed {
		sb.WriteByte('Z')
	}
}

// formatCoord rounds to 0.01px, enough for any screen or print.
func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// continentColours is the highlight palette of the map.
var continentColours = map[worldmap.Continent]string{
	worldmap.Africa:       "#f97316",
	worldmap.Antarctica:   "#94a3b8",
	worldmap.Asia:         "#22c55e",
	worldmap.Europe:       "#38bdf8",
	worldmap.NorthAmerica: "#eab308",
	worldmap.Oceania:      "#a855f7",
	worldmap.SouthAmerica: "#ef4444",
}

// InactiveColour fills countries outside the highlighted continent.
const InactiveColour = "#1e293b"

// Colour returns the highlight colour of a continent.
func Colour(c worldmap.Continent) string {
	if v, ok := continentColours[c]; ok {
		return v
	}
	return InactiveColour
}
