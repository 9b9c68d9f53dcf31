package main

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/andreiashu/worldmap"
	"github.com/andreiashu/worldmap/render"
	"github.com/andreiashu/worldmap/server"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, log, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("Catalog loaded",
				zap.Int("countries", cat.Len()),
				zap.Int("continents", len(cat.Continents())))
			return server.New(cat, server.Config{Address: cfg.Addr, Logger: log}).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	return cmd
}

func newContinentsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "continents",
		Short: "List continents and their country counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, log, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Continent", "Slug", "Countries"})
			for _, c := range cat.Continents() {
				t.AppendRow(table.Row{c, c.Slug(), len(cat.CountriesIn(c))})
			}
			t.AppendFooter(table.Row{"Total", "", cat.Len()})
			t.Render()
			return nil
		},
	}
}

func newCountriesCmd(cfg *config) *cobra.Command {
	var continent string
	var sorted bool

	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List countries in source order, by continent, or for one continent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter worldmap.Continent
			if continent != "" {
				c, ok := worldmap.ParseContinent(continent)
				if !ok {
					return fmt.Errorf("unknown continent %q", continent)
				}
				filter = c
			}

			cat, log, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			records := cat.Countries()
			switch {
			case filter != "":
				records = cat.CountriesIn(filter)
			case sorted:
				records = cat.AllSorted()
			}
			renderCountries(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().StringVar(&continent, "continent", "", "only list countries of this continent")
	cmd.Flags().BoolVar(&sorted, "by-continent", false, "order by continent, then name")
	return cmd
}

func newExplainCmd() *cobra.Command {
	props := map[string]*string{}
	var useTable bool

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show which rule assigns a continent to the given properties",
		Example: `  worldmap explain --continent "North America" --subregion Caribbean --name Cuba
  worldmap explain --table --name Mongolia`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := geojson.Properties{}
			for key, v := range props {
				if *v != "" {
					p[key] = *v
				}
			}

			var cls worldmap.Classifier = worldmap.NewRuleClassifier()
			if useTable {
				cls = worldmap.DefaultTable()
			}
			res := cls.Explain(p)

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Continent", "Rule", "Field", "Value"})
			t.AppendRow(table.Row{res.Continent, res.Rule, res.Field, res.Value})
			t.Render()
			return nil
		},
	}
	for _, key := range []string{"continent", "region_un", "subregion", "name"} {
		props[key] = cmd.Flags().String(flagName(key), "", key+" property")
	}
	cmd.Flags().BoolVar(&useTable, "table", false, "use the name table instead of the rule cascade")
	return cmd
}

func flagName(key string) string {
	if key == "region_un" {
		return "region-un"
	}
	return key
}

func newValidateCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and check it for coverage and consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, log, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := worldmap.ValidateCatalog(cat); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", cat)
			return err
		},
	}
}

func newLocateCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <lat> <lng>",
		Short: "Find the country containing a point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil || lat < -90 || lat > 90 {
				return fmt.Errorf("invalid latitude %q", args[0])
			}
			lng, err := strconv.ParseFloat(args[1], 64)
			if err != nil || lng < -180 || lng > 180 {
				return fmt.Errorf("invalid longitude %q", args[1])
			}

			cat, log, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			r, ok := cat.CountryAt(lat, lng)
			if !ok {
				return fmt.Errorf("no country at %v,%v", lat, lng)
			}
			renderCountries(cmd.OutOrStdout(), []worldmap.CountryRecord{r})
			return nil
		},
	}
}

func newOutlineCmd(cfg *config) *cobra.Command {
	var width, height float64

	cmd := &cobra.Command{
		Use:   "outline <id|iso|name>",
		Short: "Write a country outline as SVG to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, log, err := cfg.loadCatalog()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			r, ok := cat.Country(args[0])
			if !ok {
				return fmt.Errorf("country %q not found", args[0])
			}
			svg, err := render.OutlineSVG(render.NewMercator(), r, width, height)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), svg)
			return err
		},
	}
	cmd.Flags().Float64Var(&width, "width", render.DefaultOutlineWidth, "image width in pixels")
	cmd.Flags().Float64Var(&height, "height", render.DefaultOutlineHeight, "image height in pixels")
	return cmd
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderCountries(w io.Writer, records []worldmap.CountryRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "ID", "Name", "Continent", "ISO", "Centroid", "Geohash"})
	for i, r := range records {
		t.AppendRow(table.Row{
			i + 1,
			r.ID,
			r.Name,
			r.Continent,
			r.ISOA3,
			fmt.Sprintf("%.2f, %.2f", r.Centroid[1], r.Centroid[0]),
			r.Geohash,
		})
	}
	t.AppendFooter(table.Row{"Total", len(records)})
	t.Render()
}
