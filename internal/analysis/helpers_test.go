package analysis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	scenes []analysis.Scene
	err    error
}

func (f *fakeImages) Scenes(_ context.Context, _ analysis.SceneQuery) ([]analysis.Scene, error) {
	return f.scenes, f.err
}

type fakeLayers map[analysis.Layer]*raster.Raster

func (f fakeLayers) Layer(_ context.Context, name analysis.Layer, _ domain.Region) (*raster.Raster, error) {
	r, ok := f[name]
	if !ok {
		return nil, analysis.ErrLayerNotFound
	}
	return r, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// areaGrid is a 10 m equal-area grid of 2*half metres centred on (0, 0).
func areaGrid(half float64) raster.Grid {
	n := int(2 * half / 10)
	return raster.NewGrid(n, n, -half, half, 10, 10, raster.CRSEqualArea)
}

func region(t *testing.T, radius float64) domain.Region {
	t.Helper()
	r, err := domain.NewRegion(0, 0, radius)
	require.NoError(t, err)
	return r
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 6, 0, 0, 0, time.UTC)
}

func period(from, to int) domain.Period {
	return domain.Period{Start: day(from), End: day(to)}
}

func s1Metadata() domain.SceneMetadata {
	return domain.SceneMetadata{
		Platform:         "sentinel-1a",
		InstrumentMode:   "IW",
		Polarisations:    []string{"VV", "VH"},
		OrbitPass:        "DESCENDING",
		ResolutionMeters: 10,
		Units:            domain.UnitsLinear,
	}
}

func scene(id string, acquired time.Time, r *raster.Raster) analysis.Scene {
	return analysis.Scene{ID: id, Acquired: acquired, Metadata: s1Metadata(), Raster: r}
}

// setCount returns the number of set cells.
func setCount(r *raster.Raster) int {
	n := 0
	for i := 0; i < r.Len(); i++ {
		if r.IsSet(i) {
			n++
		}
	}
	return n
}
