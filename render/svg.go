package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/andreiashu/worldmap"
	"github.com/paulmach/orb"
)

const (
	backgroundColour = "#0f172a"
	outlineFill      = "#38bdf8"
	outlineStroke    = "#e2e8f0"
	selectedStroke   = "#ffffff"
)

// OutlineSVG renders a single country fitted to width x height as a
// standalone SVG document, for previews and printing.
func OutlineSVG(p Projector, r worldmap.CountryRecord, width, height float64) (string, error) {
	o, err := p.Project(r.Geometry, width, height)
	if err != nil {
		return "", fmt.Errorf("outline %q: %w", r.ID, err)
	}

	var sb strings.Builder
	openSVG(&sb, width, height, r.Name+" outline")
	fmt.Fprintf(&sb, `<path d="%s" fill="%s" stroke="%s" stroke-width="1.5"/>`, o.Path, outlineFill, outlineStroke)
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// MapOptions controls WorldSVG.
type MapOptions struct {
	Width      float64
	Height     float64
	Highlight  worldmap.Continent // countries of this continent get its colour
	SelectedID string             // this country gets a thicker white stroke
}

// WorldSVG draws every country of the catalog on one shared frame fitted
// to the whole catalog.
func WorldSVG(f *Fitter, cat *worldmap.Catalog, opts MapOptions) (string, error) {
	countries := cat.Countries()
	all := make(orb.Collection, 0, len(countries))
	for _, r := range countries {
		all = append(all, r.Geometry)
	}
	toPixels, err := f.Transform(all, opts.Width, opts.Height)
	if err != nil {
		return "", fmt.Errorf("world map: %w", err)
	}

	var sb strings.Builder
	openSVG(&sb, opts.Width, opts.Height, "World map")
	for _, r := range countries {
		fill := InactiveColour
		if r.Continent == opts.Highlight {
			fill = Colour(r.Continent)
		}
		stroke, strokeWidth := backgroundColour, 1
		if r.ID == opts.SelectedID {
			stroke, strokeWidth = selectedStroke, 2
		}
		o := outline(r.Geometry, toPixels)
		fmt.Fprintf(&sb, `<path id="%s" d="%s" fill="%s" stroke="%s" stroke-width="%d"><title>%s</title></path>`,
			html.EscapeString(r.ID), o.Path, fill, stroke, strokeWidth, html.EscapeString(r.Name))
		sb.WriteByte('\n')
	}
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func openSVG(sb *strings.Builder, width, height float64, label string) {
	fmt.Fprintf(sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g" role="img" aria-label="%s">`,
		width, height, width, height, html.EscapeString(label))
	sb.WriteByte('\n')
	fmt.Fprintf(sb, `<rect width="100%%" height="100%%" fill="%s"/>`, backgroundColour)
	sb.WriteByte('\n')
}
