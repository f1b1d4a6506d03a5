package analysis_test

import (
	"context"
	"testing"

	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exposureAnalyzer(p analysis.Parameters) *analysis.ExposureAnalyzer {
	return analysis.NewExposureAnalyzer(p, analysis.NewZonalEngine(p.Workers, p.TileRows, p.ResamplePolicy))
}

func TestExposure_AllCroplandEqualsRegionArea(t *testing.T) {
	roi := region(t, 500)
	g := areaGrid(600)
	flood := raster.ClipToRegion(raster.NewFilled(g, 1), roi)
	landcover := raster.NewFilled(g, 40)

	classes, err := exposureAnalyzer(analysis.DefaultParameters()).Classes(context.Background(), flood, landcover, roi)
	require.NoError(t, err)
	require.Len(t, classes, 2)

	crop := classes[0]
	assert.Equal(t, analysis.ClassCropland, crop.Class.Name)
	assert.InDelta(t, roi.AreaHectares(), crop.AffectedHectares, roi.AreaHectares()*0.02)
	assert.InDelta(t, crop.TotalHectares, crop.AffectedHectares, crop.TotalHectares*0.02)

	builtup := classes[1]
	assert.Equal(t, analysis.ClassBuiltup, builtup.Class.Name)
	assert.Equal(t, 0.0, builtup.AffectedHectares)
	assert.True(t, builtup.Affected.IsEmpty())
}

func TestExposure_ClassesRestrictTheFlood(t *testing.T) {
	roi := region(t, 500)
	g := areaGrid(600)
	flood := raster.ClipToRegion(raster.NewFilled(g, 1), roi)

	// Left half cropland, right half built-up.
	landcover := raster.New(g)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			code := 40.0
			if c >= g.Cols/2 {
				code = 50
			}
			landcover.Set(g.Index(c, r), code)
		}
	}

	p := analysis.DefaultParameters()
	p.LandCoverClasses = append(p.LandCoverClasses, analysis.LandCoverClass{Name: "wetland", Code: 90})
	classes, err := exposureAnalyzer(p).Classes(context.Background(), flood, landcover, roi)
	require.NoError(t, err)
	require.Len(t, classes, 3)

	half := roi.AreaHectares() / 2
	assert.InDelta(t, half, classes[0].AffectedHectares, half*0.03)
	assert.InDelta(t, half, classes[1].AffectedHectares, half*0.03)
	assert.Equal(t, "wetland", classes[2].Class.Name)
	assert.Equal(t, 0.0, classes[2].TotalHectares)
}

func TestExposure_PopulationIsSummedNotAreaWeighted(t *testing.T) {
	roi := region(t, 300)
	g := areaGrid(400)
	flood := raster.ClipToRegion(raster.NewFilled(g, 1), roi)
	population := raster.NewFilled(g, 2.5)

	pop, err := exposureAnalyzer(analysis.DefaultParameters()).Population(context.Background(), flood, population, roi)
	require.NoError(t, err)

	n := regionCellCount(g, roi)
	assert.InDelta(t, 2.5*float64(n), pop.Total, 1e-9)
	assert.InDelta(t, pop.Total, pop.Exposed, 1e-9)
}

func TestExposure_PopulationOnCoarserGrid(t *testing.T) {
	roi := region(t, 300)
	flood := raster.ClipToRegion(raster.NewFilled(areaGrid(400), 1), roi)
	coarse := raster.NewGrid(8, 8, -400, 400, 100, 100, raster.CRSEqualArea)
	population := raster.NewFilled(coarse, 40)

	pop, err := exposureAnalyzer(analysis.DefaultParameters()).Population(context.Background(), flood, population, roi)
	require.NoError(t, err)
	assert.Greater(t, pop.Total, 0.0)
	assert.InDelta(t, pop.Total, pop.Exposed, 2*40)
}

func TestExposure_PopulationBudget(t *testing.T) {
	p := analysis.DefaultParameters()
	p.PopulationMaxPixels = 10
	roi := region(t, 300)
	g := areaGrid(400)

	_, err := exposureAnalyzer(p).Population(context.Background(), raster.NewFilled(g, 1), raster.NewFilled(g, 1), roi)
	assert.Error(t, err)
}
