package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/catalog"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/observability"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() synthOptions {
	return synthOptions{
		Lat:          -19.83,
		Lon:          34.84,
		RadiusMeters: 1500,
		ScaleMeters:  20,
		CRS:          raster.CRSEqualArea,
		Seed:         7,
		Date:         time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := generate(testOptions())
	require.NoError(t, err)
	b, err := generate(testOptions())
	require.NoError(t, err)

	ra, rb := a.rasters["S1_SYNTH_AFTER_1.asc"], b.rasters["S1_SYNTH_AFTER_1.asc"]
	require.Equal(t, ra.Len(), rb.Len())
	for i := 0; i < ra.Len(); i += 97 {
		va, _ := ra.Value(i)
		vb, _ := rb.Value(i)
		assert.Equal(t, va, vb)
	}
}

func TestGenerate_RejectsBadOptions(t *testing.T) {
	opts := testOptions()
	opts.CRS = "EPSG:32736"
	_, err := generate(opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.ScaleMeters = 0
	_, err = generate(opts)
	assert.Error(t, err)
}

func TestGenerate_CatalogDrivesAnalysis(t *testing.T) {
	synth, err := generate(testOptions())
	require.NoError(t, err)
	path, err := synth.write(t.TempDir())
	require.NoError(t, err)

	cat, err := catalog.Load(path)
	require.NoError(t, err)
	a, err := analysis.NewAnalyzer(analysis.DefaultParameters(), cat, cat, nil,
		slog.Default(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	result, err := a.Run(context.Background(), synth.request)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Equal(t, []string{"S1_SYNTH_BEFORE_2", "S1_SYNTH_BEFORE_1"}, result.BeforeScenes)
	assert.Equal(t, []string{"S1_SYNTH_AFTER_1"}, result.AfterScenes)

	require.Len(t, result.Stages, 4)
	assert.Less(t, result.Stages[1].Cells, result.Stages[0].Cells, "river removed as permanent water")
	assert.Less(t, result.Stages[2].Cells, result.Stages[1].Cells, "hill removed as steep")

	assert.Greater(t, result.FloodedHectares, 0.0)
	assert.Less(t, result.FloodedHectares, result.RegionHectares)
	assert.Greater(t, result.BuiltupAffectedHectares, 0.0)
	assert.Greater(t, result.CroplandAffectedHectares, 0.0)
	assert.Greater(t, result.PeopleExposed, 0.0)
	assert.LessOrEqual(t, result.PeopleExposed, result.PopulationTotal)
}
