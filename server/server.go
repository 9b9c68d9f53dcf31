// Package server exposes a country catalog over a read-only HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/andreiashu/worldmap"
	"github.com/andreiashu/worldmap/render"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 15 * time.Second

// Config holds server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
	Projector       render.Projector // country outlines
	MapFitter       *render.Fitter   // shared frame of the world map
}

// SetDefaults applies default values to the config.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Projector == nil {
		c.Projector = render.NewMercator()
	}
	if c.MapFitter == nil {
		c.MapFitter = &render.Fitter{}
	}
}

// Server serves one immutable catalog. Handlers read it without locking.
type Server struct {
	cfg      Config
	catalog  *worldmap.Catalog
	router   *gin.Engine
	registry *prometheus.Registry
	metrics  *metrics
	log      *zap.Logger
}

// New builds the router and registers metrics for cat.
func New(cat *worldmap.Catalog, cfg Config) *Server {
	cfg.SetDefaults()
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		catalog:  cat,
		router:   gin.New(),
		registry: prometheus.NewRegistry(),
		log:      cfg.Logger,
	}
	s.metrics = newMetrics(s.registry)
	s.metrics.observeCatalog(cat)

	s.router.Use(gin.Recovery(), s.instrument())
	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/continents", s.listContinents)
		v1.GET("/continents/:continent/countries", s.listContinentCountries)

		v1.GET("/countries", s.listCountries)
		v1.GET("/countries.geojson", s.countriesGeoJSON)
		v1.GET("/countries/:id", s.getCountry)
		v1.GET("/countries/:id/outline.svg", s.countryOutline)

		v1.GET("/map.svg", s.worldMap)
		v1.GET("/search", s.search)
		v1.GET("/locate", s.locate)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.log.Info("Context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}
