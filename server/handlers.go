package server

import (
	"net/http"
	"strconv"

	"github.com/andreiashu/worldmap"
	"github.com/andreiashu/worldmap/render"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Country is the JSON form of a catalog record. Geometry is only served
// through the GeoJSON and SVG endpoints.
type Country struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Continent string     `json:"continent"`
	ISOA3     string     `json:"isoA3,omitempty"`
	Centroid  [2]float64 `json:"centroid"`
	Geohash   string     `json:"geohash"`
}

func toCountry(r worldmap.CountryRecord) Country {
	return Country{
		ID:        r.ID,
		Name:      r.Name,
		Continent: string(r.Continent),
		ISOA3:     r.ISOA3,
		Centroid:  [2]float64{r.Centroid[0], r.Centroid[1]},
		Geohash:   r.Geohash,
	}
}

func toCountries(records []worldmap.CountryRecord) []Country {
	out := make([]Country, len(records))
	for i, r := range records {
		out[i] = toCountry(r)
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"countries":  s.catalog.Len(),
		"continents": len(s.catalog.Continents()),
	})
}

// GET /api/v1/continents
func (s *Server) listContinents(c *gin.Context) {
	type continent struct {
		Name      string `json:"name"`
		Slug      string `json:"slug"`
		Colour    string `json:"colour"`
		Countries int    `json:"countries"`
	}
	out := make([]continent, 0, len(s.catalog.Continents()))
	for _, cont := range s.catalog.Continents() {
		out = append(out, continent{
			Name:      string(cont),
			Slug:      cont.Slug(),
			Colour:    render.Colour(cont),
			Countries: len(s.catalog.CountriesIn(cont)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"continents": out})
}

// GET /api/v1/continents/:continent/countries
func (s *Server) listContinentCountries(c *gin.Context) {
	cont, ok := worldmap.ParseContinent(c.Param("continent"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown continent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"continent": string(cont),
		"countries": toCountries(s.catalog.CountriesIn(cont)),
	})
}

// GET /api/v1/countries?order=continent
func (s *Server) listCountries(c *gin.Context) {
	records := s.catalog.Countries()
	switch c.Query("order") {
	case "", "source":
	case "continent":
		records = s.catalog.AllSorted()
	default:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "order must be source or continent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(records), "countries": toCountries(records)})
}

// GET /api/v1/countries.geojson
func (s *Server) countriesGeoJSON(c *gin.Context) {
	body, err := s.catalog.FeatureCollection().MarshalJSON()
	if err != nil {
		s.log.Error("Failed to encode GeoJSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "encoding failed"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// GET /api/v1/countries/:id
func (s *Server) getCountry(c *gin.Context) {
	r, ok := s.catalog.Country(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "country not found"})
		return
	}
	c.JSON(http.StatusOK, toCountry(r))
}

// GET /api/v1/countries/:id/outline.svg?width=&height=
func (s *Server) countryOutline(c *gin.Context) {
	r, ok := s.catalog.Country(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "country not found"})
		return
	}
	width, ok1 := sizeParam(c, "width", render.DefaultOutlineWidth)
	height, ok2 := sizeParam(c, "height", render.DefaultOutlineHeight)
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "width and height must be between 1 and 4096"})
		return
	}

	svg, err := render.OutlineSVG(s.cfg.Projector, r, width, height)
	if err != nil {
		s.log.Warn("Failed to render outline", zap.String("id", r.ID), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}

// GET /api/v1/map.svg?continent=&selected=&width=&height=
func (s *Server) worldMap(c *gin.Context) {
	width, ok1 := sizeParam(c, "width", 960)
	height, ok2 := sizeParam(c, "height", 520)
	if !ok1 || !ok2 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "width and height must be between 1 and 4096"})
		return
	}
	opts := render.MapOptions{Width: width, Height: height, SelectedID: c.Query("selected")}
	if q := c.Query("continent"); q != "" {
		cont, ok := worldmap.ParseContinent(q)
		if !ok {
			c.JSON(http.StatusNotFound, errorResponse{Error: "unknown continent"})
			return
		}
		opts.Highlight = cont
	}

	svg, err := render.WorldSVG(s.cfg.MapFitter, s.catalog, opts)
	if err != nil {
		s.log.Warn("Failed to render map", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}

// GET /api/v1/search?q=&distance=
func (s *Server) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "q is required"})
		return
	}
	distance := 0
	if v := c.Query("distance"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "distance must be a non-negative integer"})
			return
		}
		distance = d
	}
	results := s.catalog.Find(q, distance)
	c.JSON(http.StatusOK, gin.H{"query": q, "total": len(results), "countries": toCountries(results)})
}

// GET /api/v1/locate?lat=&lng=
func (s *Server) locate(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "lat and lng must be valid coordinates"})
		return
	}
	r, ok := s.catalog.CountryAt(lat, lng)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no country at this point"})
		return
	}
	c.JSON(http.StatusOK, toCountry(r))
}

const maxImageSize = 4096

func sizeParam(c *gin.Context, name string, def float64) (float64, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 1 || n > maxImageSize {
		return 0, false
	}
	return n, true
}
