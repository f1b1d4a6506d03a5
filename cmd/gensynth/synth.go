package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/catalog"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
)

// Backscatter levels in linear units.
const (
	landBackscatter  = 0.05
	waterBackscatter = 0.005
	floodGain        = 1.8
)

// Land cover codes written to the synthetic layer.
const (
	codeTrees    = 10
	codeCropland = 40
	codeBuiltup  = 50
	codeWater    = 80
)

type synthOptions struct {
	Lat, Lon     float64
	RadiusMeters float64
	ScaleMeters  float64
	CRS          string
	Seed         int64
	Date         time.Time
}

// scene describes one generated acquisition.
type scene struct {
	id       string
	acquired time.Time
	pass     string
	flooded  bool
}

// terrain is the synthetic study area in local metres from the centre: a
// meandering river with a floodplain either side, a town straddling the
// floodplain and a steep hill in the north-east.
type terrain struct {
	radius float64
}

func (t terrain) riverY(x float64) float64 {
	return 0.15 * t.radius * math.Sin(2*math.Pi*x/(1.5*t.radius))
}

// riverDistance is the north-south distance to the river centreline.
func (t terrain) riverDistance(x, y float64) float64 {
	return math.Abs(y - t.riverY(x))
}

func (t terrain) isRiver(x, y float64) bool { return t.riverDistance(x, y) < 30 }

func (t terrain) isFloodplain(x, y float64) bool {
	return t.riverDistance(x, y) < 0.25*t.radius
}

func (t terrain) isHill(x, y float64) bool {
	return x > 0.5*t.radius && y > 0.4*t.radius
}

func (t terrain) isTown(x, y float64) bool {
	return x > -0.6*t.radius && x < -0.3*t.radius && y > -0.5*t.radius && y < -0.1*t.radius
}

func (t terrain) elevation(x, y float64) float64 {
	z := 10 + 0.01*t.riverDistance(x, y)
	if t.isHill(x, y) {
		z += 0.3 * (x - 0.5*t.radius)
	}
	return z
}

func (t terrain) landcover(x, y float64) float64 {
	switch {
	case t.isRiver(x, y):
		return codeWater
	case t.isTown(x, y):
		return codeBuiltup
	case t.riverDistance(x, y) > 0.5*t.radius:
		return codeTrees
	default:
		return codeCropland
	}
}

// seasonality is the number of months per year a cell holds water.
func (t terrain) seasonality(x, y float64) float64 {
	switch d := t.riverDistance(x, y); {
	case d < 30:
		return 12
	case d < 60:
		return 3
	default:
		return 0
	}
}

// inundated reports whether the post-event scene sees standing water at the
// cell. The hill is included so the slope stage has something to remove.
func (t terrain) inundated(x, y float64) bool {
	return t.isFloodplain(x, y) || t.isHill(x, y)
}

// synthetic holds generated rasters keyed by output file name.
type synthetic struct {
	catalog *catalog.Catalog
	rasters map[string]*raster.Raster
	request domain.AnalysisRequest
}

func generate(opts synthOptions) (*synthetic, error) {
	if !raster.SupportedCRS(opts.CRS) {
		return nil, fmt.Errorf("unsupported CRS %q", opts.CRS)
	}
	if opts.ScaleMeters <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %g", opts.ScaleMeters)
	}
	extent, err := domain.NewRegion(opts.Lat, opts.Lon, opts.RadiusMeters*1.3)
	if err != nil {
		return nil, err
	}
	grid := raster.GridForBound(extent.Bound(), opts.CRS, opts.ScaleMeters)
	popGrid := raster.GridForBound(extent.Bound(), opts.CRS, opts.ScaleMeters*10)

	t := terrain{radius: opts.RadiusMeters}
	rng := rand.New(rand.NewSource(opts.Seed))
	local := localProjection(opts.Lat, opts.Lon)

	out := &synthetic{rasters: map[string]*raster.Raster{}}
	out.rasters["elevation.asc"] = fill(grid, local, t.elevation)
	out.rasters["landcover.asc"] = fill(grid, local, t.landcover)
	out.rasters["permanent_water.asc"] = fill(grid, local, t.seasonality)
	out.rasters["population.asc"] = fill(popGrid, local, func(x, y float64) float64 {
		switch t.landcover(x, y) {
		case codeBuiltup:
			return 400
		case codeCropland:
			return 5
		default:
			return 0
		}
	})

	day := func(n int) time.Time { return opts.Date.AddDate(0, 0, n) }
	scenes := []scene{
		{id: "S1_SYNTH_BEFORE_1", acquired: day(-11), pass: "DESCENDING"},
		{id: "S1_SYNTH_BEFORE_2", acquired: day(-5), pass: "DESCENDING"},
		{id: "S1_SYNTH_AFTER_1", acquired: day(1), pass: "DESCENDING", flooded: true},
		{id: "S1_SYNTH_AFTER_ASC", acquired: day(2), pass: "ASCENDING", flooded: true},
	}

	cat := &catalog.Catalog{
		CRS: opts.CRS,
		Layers: map[string]catalog.RasterEntry{
			string(analysis.LayerElevation):      {Path: "elevation.asc"},
			string(analysis.LayerLandCover):      {Path: "landcover.asc"},
			string(analysis.LayerPermanentWater): {Path: "permanent_water.asc"},
			string(analysis.LayerPopulation):     {Path: "population.asc"},
		},
	}
	for _, s := range scenes {
		name := s.id + ".asc"
		out.rasters[name] = fill(grid, local, func(x, y float64) float64 {
			v := landBackscatter
			if t.isRiver(x, y) {
				v = waterBackscatter
			}
			if s.flooded && t.inundated(x, y) {
				v *= floodGain
			}
			return v * (0.85 + 0.3*rng.Float64())
		})
		cat.Entries = append(cat.Entries, catalog.SceneEntry{
			ID:       s.id,
			Acquired: s.acquired,
			Metadata: domain.SceneMetadata{
				Platform:         "synthetic",
				InstrumentMode:   "IW",
				Polarisations:    []string{"VV", "VH"},
				OrbitPass:        s.pass,
				ResolutionMeters: 10,
				Units:            domain.UnitsLinear,
			},
			RasterEntry: catalog.RasterEntry{Path: name},
		})
	}
	out.catalog = cat

	lat, lon := opts.Lat, opts.Lon
	out.request = domain.AnalysisRequest{
		ID:           "synthetic",
		Lat:          &lat,
		Lon:          &lon,
		RadiusMeters: opts.RadiusMeters,
		Before:       domain.Period{Start: day(-14), End: day(0)},
		After:        domain.Period{Start: day(0), End: day(7)},
	}
	return out, nil
}

// write stores every raster and the catalog under dir and returns the catalog path.
func (s *synthetic) write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	for name, r := range s.rasters {
		if err := writeGrid(filepath.Join(dir, name), r); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, "catalog.yaml")
	if err := catalog.Save(path, s.catalog); err != nil {
		return "", err
	}
	return path, nil
}

func writeGrid(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := raster.WriteASCIIGrid(f, r, raster.DefaultASCIINoData); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// localProjection maps CRS cell centres to metres east and north of the
// centre using an equirectangular approximation.
func localProjection(lat0, lon0 float64) func(crs string, x, y float64) (float64, float64) {
	const metersPerDegree = 111320.0
	k := math.Cos(lat0 * math.Pi / 180)
	return func(crs string, x, y float64) (float64, float64) {
		lon, lat := raster.ToLonLat(crs, x, y)
		return (lon - lon0) * metersPerDegree * k, (lat - lat0) * metersPerDegree
	}
}

func fill(g raster.Grid, local func(string, float64, float64) (float64, float64), fn func(x, y float64) float64) *raster.Raster {
	r := raster.New(g)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			cx, cy := g.CellCenter(col, row)
			x, y := local(g.CRS, cx, cy)
			r.Set(g.Index(col, row), fn(x, y))
		}
	}
	return r
}
