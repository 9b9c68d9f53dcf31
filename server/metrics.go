package server

import (
	"strconv"
	"time"

	"github.com/andreiashu/worldmap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	countries *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worldmap_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worldmap_http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"route"}),
		countries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worldmap_catalog_countries",
			Help: "Countries in the served catalog by continent",
		}, []string{"continent"}),
	}
	reg.MustRegister(m.requests, m.durations, m.countries)
	return m
}

func (m *metrics) observeCatalog(cat *worldmap.Catalog) {
	for _, c := range cat.Continents() {
		m.countries.WithLabelValues(string(c)).Set(float64(len(cat.CountriesIn(c))))
	}
}

// instrument records every request under its route template, so
// /countries/:id is one series rather than one per country.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.durations.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}
