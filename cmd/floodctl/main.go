// Command floodctl runs one flood impact analysis against a local catalog and
// prints the result as JSON.
//
// Usage:
//
//	go run ./cmd/floodctl \
//	  -catalog data/synth/catalog.yaml \
//	  -lat -19.84 -lon 34.84 -radius 3000 \
//	  -before 2024-03-01/2024-03-10 -after 2024-03-10/2024-03-20 \
//	  -out data/masks
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/adapter/mapbox"
	"github.com/couchcryptid/flood-impact-service/internal/adapter/sqlite"
	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/catalog"
	"github.com/couchcryptid/flood-impact-service/internal/config"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "floodctl:", err)
		os.Exit(1)
	}
}

type options struct {
	catalog  string
	params   string
	out      string
	record   string
	logLevel string
	timeout  time.Duration
	req      domain.AnalysisRequest
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("floodctl", flag.ContinueOnError)
	fs.StringVar(&o.catalog, "catalog", "catalog.yaml", "scene and layer catalog")
	fs.StringVar(&o.params, "params", "", "YAML analysis parameter overrides")
	fs.StringVar(&o.out, "out", "", "directory for mask grids (optional)")
	fs.StringVar(&o.record, "record", "", "SQLite results database to record the run in (optional)")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Minute, "analysis deadline")
	fs.StringVar(&o.req.ID, "id", "", "analysis ID (generated when empty)")
	fs.StringVar(&o.req.Location, "location", "", "place name to geocode (needs MAPBOX_TOKEN)")
	fs.Float64Var(&o.req.RadiusMeters, "radius", 0, "region radius in metres (0 uses the configured default)")
	fs.Func("lat", "region centre latitude", floatFlag(&o.req.Lat))
	fs.Func("lon", "region centre longitude", floatFlag(&o.req.Lon))
	fs.Func("before", "before period start/end (RFC 3339 or YYYY-MM-DD)", periodFlag(&o.req.Before))
	fs.Func("after", "after period start/end (RFC 3339 or YYYY-MM-DD)", periodFlag(&o.req.After))
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func run() error {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	logger := sharedobs.NewLogger(o.logLevel, "text")
	metrics := observability.NewMetrics()

	params, err := config.LoadParameters()
	if err != nil {
		return err
	}
	if o.params != "" {
		if params, err = analysis.LoadParametersFile(o.params, params); err != nil {
			return err
		}
	}

	cat, err := catalog.Load(o.catalog)
	if err != nil {
		return err
	}

	var geocoder domain.Geocoder
	if token := os.Getenv("MAPBOX_TOKEN"); token != "" {
		geocoder = mapbox.NewClient(token, 5*time.Second, logger, metrics)
	}

	var opts []analysis.Option
	if o.out != "" {
		opts = append(opts, analysis.WithOutputDir(o.out))
	}
	analyzer, err := analysis.NewAnalyzer(params, cat, cat, geocoder, logger, metrics, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result, runErr := analyzer.Run(ctx, o.req)

	if o.record != "" {
		store, err := sqlite.Open(o.record, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.LoadBatch(ctx, []domain.AnalysisResult{result}); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	out := struct {
		domain.AnalysisResult
		Percentages domain.Percentages `json:"percentages"`
	}{result, result.Percentages()}
	if err := enc.Encode(out); err != nil {
		return err
	}
	return runErr
}

func floatFlag(dst **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
}

func periodFlag(dst *domain.Period) func(string) error {
	return func(s string) error {
		start, end, ok := strings.Cut(s, "/")
		if !ok {
			return errors.New("want start/end")
		}
		var err error
		if dst.Start, err = parseTime(start); err != nil {
			return err
		}
		if dst.End, err = parseTime(end); err != nil {
			return err
		}
		return nil
	}
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}
