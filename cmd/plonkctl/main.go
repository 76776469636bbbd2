package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plonkgame/plonk/internal/config"
	"github.com/plonkgame/plonk/internal/database"
	"github.com/plonkgame/plonk/internal/dataset"
	"github.com/plonkgame/plonk/internal/geomath"
	"github.com/plonkgame/plonk/internal/migrations"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
	"github.com/plonkgame/plonk/internal/revgeo"
	"github.com/plonkgame/plonk/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	dbPath     string
	csvFile    string
	citiesFile string
	cacheSize  int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := &config.Config{
		DBPath:           "data/plonk.db",
		CSVFile:          "select.csv",
		CitiesFile:       "data/cities.csv",
		GeocodeCacheSize: revgeo.DefaultCacheSize,
	}
	if cfg, err := config.Load(); err == nil {
		defaults = cfg
	}

	root := &cobra.Command{
		Use:           "plonkctl",
		Short:         "Operate the plonk game data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", defaults.DBPath, "SQLite database path")
	root.PersistentFlags().StringVar(&opts.citiesFile, "cities", defaults.CitiesFile, "cities CSV for reverse geocoding")
	root.PersistentFlags().IntVar(&opts.cacheSize, "cache-size", defaults.GeocodeCacheSize, "geocoder LRU size")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	opts.csvFile = defaults.CSVFile

	root.AddCommand(newPrecomputeCmd(opts))
	root.AddCommand(newTableCmd(opts))
	root.AddCommand(newScoreCmd())
	root.AddCommand(newGeocodeCmd(opts))
	root.AddCommand(newSessionsCmd(opts))
	return root
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *options) openStore(ctx context.Context) (*store.SQLiteStore, *sql.DB, error) {
	db, err := database.Open(ctx, o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunContext(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewSQLiteStore(db), db, nil
}

func (o *options) geocoder() (*revgeo.Geocoder, error) {
	cities, err := revgeo.LoadCities(o.citiesFile)
	if err != nil {
		return nil, err
	}
	return revgeo.NewGeocoder(cities, o.cacheSize)
}

func newPrecomputeCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "precompute",
		Short: "Build the reference accuracy table for a dataset and store it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := opts.logger(cmd)

			ds, err := dataset.Load(opts.csvFile)
			if err != nil {
				return err
			}
			geo, err := opts.geocoder()
			if err != nil {
				return err
			}
			st, db, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			var table *reference.Table
			if force {
				table, err = reference.Build(ctx, ds.Items, geo)
				if err == nil {
					err = st.SaveReferenceEntries(ctx, ds.Fingerprint, table.Entries())
				}
			} else {
				table, err = reference.LoadOrBuild(ctx, logger, st, ds.Fingerprint, ds.Items, geo)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored %d items under %s\n", table.Len(), ds.Fingerprint)
			return printTotals(cmd.OutOrStdout(), table)
		},
	}
	cmd.Flags().StringVar(&opts.csvFile, "csv", opts.csvFile, "dataset CSV")
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even if a table is stored")
	return cmd
}

func newTableCmd(opts *options) *cobra.Command {
	var fingerprint string
	var all bool
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print a stored reference table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, db, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if fingerprint == "" {
				fingerprint, err = st.LatestFingerprint(ctx)
				if errors.Is(err, store.ErrNotFound) {
					return errors.New("no reference table stored; run precompute first")
				}
				if err != nil {
					return err
				}
			}
			entries, ok, err := st.ReferenceEntries(ctx, fingerprint)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no reference table stored under %s", fingerprint)
			}

			table := reference.FromEntries(entries)
			if all {
				if err := printRows(cmd.OutOrStdout(), table); err != nil {
					return err
				}
			}
			return printTotals(cmd.OutOrStdout(), table)
		},
	}
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "dataset fingerprint (default: most recent)")
	cmd.Flags().BoolVar(&all, "rows", false, "print every cumulative row, not just the totals")
	return cmd
}

func printRows(w io.Writer, t *reference.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "before\tid\tvalid country\tbest country\tbaseline country\tbest score\tbaseline score")
	for i, row := range t.Rows() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.3f\t%.3f\t%.1f\t%.1f\n",
			row.Index, t.Entry(i).ID, row.Valid[plonk.Country],
			row.Best.Rate[plonk.Country], row.Baseline.Rate[plonk.Country],
			row.Best.MeanScore, row.Baseline.MeanScore)
	}
	return tw.Flush()
}

func printTotals(w io.Writer, t *reference.Table) error {
	total := t.Cumulative(t.Len())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "who\tGeoScore\tDistance")
	for _, g := range plonk.Granularities {
		fmt.Fprintf(tw, "\t%s", g)
	}
	fmt.Fprintln(tw)
	for _, who := range []plonk.Who{plonk.WhoBest, plonk.WhoBaseline} {
		s := total.Of(who)
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f", who, s.MeanScore, s.MeanDistance)
		for _, g := range plonk.Granularities {
			fmt.Fprintf(tw, "\t%.3f", s.Rate[g])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func parseCoords(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not a number", i+1, a)
		}
		out[i] = v
	}
	return out, nil
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <true-lat> <true-lon> <guess-lat> <guess-lon>",
		Short: "Print the distance and GeoScore between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseCoords(args)
			if err != nil {
				return err
			}
			d := geomath.Distance(v[0], v[1], v[2], v[3])
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "distance: %.3f km\nscore: %.2f\n", d, geomath.Score(d))
			return nil
		},
	}
}

func newGeocodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <lat> <lon>",
		Short: "Print the nearest populated place to a point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseCoords(args)
			if err != nil {
				return err
			}
			geo, err := opts.geocoder()
			if err != nil {
				return err
			}
			p := geo.Lookup(plonk.Coord{Lat: v[0], Lon: v[1]})
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "city: %s\narea: %s\nregion: %s\ncountry: %s\n",
				p.Name, p.Admin2, p.Admin1, p.CountryCode)
			return nil
		},
	}
}

func newSessionsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recently stored sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, db, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := st.ListSessions(ctx, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Status, s.StartedAt)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of sessions")
	return cmd
}
