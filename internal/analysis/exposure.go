package analysis

import (
	"context"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
)

const squareMetersPerHectare = 10000

// ClassExposure is the flood impact on one land-cover class.
type ClassExposure struct {
	Class LandCoverClass
	// Mask selects the class cells on the flood grid.
	Mask *raster.Raster
	// Affected is the flood mask restricted to the class.
	Affected         *raster.Raster
	AffectedHectares float64
	TotalHectares    float64
}

// PopulationExposure is the head count under the flood and in the region.
type PopulationExposure struct {
	Exposed float64
	Total   float64
}

// ExposureAnalyzer intersects a flood mask with land cover and population.
type ExposureAnalyzer struct {
	classes      []LandCoverClass
	zonal        *ZonalEngine
	policy       raster.ResamplePolicy
	areaScale    float64
	maxPixels    int64
	popMaxPixels int64
	budget       BudgetPolicy
	classWorkers int
}

func NewExposureAnalyzer(p Parameters, zonal *ZonalEngine) *ExposureAnalyzer {
	return &ExposureAnalyzer{
		classes:      p.LandCoverClasses,
		zonal:        zonal,
		policy:       p.ResamplePolicy,
		areaScale:    p.AreaScaleMeters,
		maxPixels:    p.MaxPixels,
		popMaxPixels: p.PopulationMaxPixels,
		budget:       p.BudgetPolicy,
		classWorkers: p.Workers,
	}
}

// AreaHectares sums the ground area of the set cells of mask inside region.
func (a *ExposureAnalyzer) AreaHectares(ctx context.Context, mask *raster.Raster, region domain.Region) (float64, error) {
	res, err := a.zonal.Reduce(ctx, ZonalRequest{
		Values:       raster.NewFilled(mask.Grid(), 1),
		Mask:         mask,
		Region:       region,
		Reducer:      ReduceSum,
		ScaleMeters:  a.areaScale,
		AreaWeighted: true,
		MaxPixels:    a.maxPixels,
		Budget:       a.budget,
	})
	if err != nil {
		return 0, err
	}
	return res.Value / squareMetersPerHectare, nil
}

// Classes computes the exposure of every configured class. Classes run
// concurrently; each worker writes only its own slot.
func (a *ExposureAnalyzer) Classes(ctx context.Context, flood, landcover *raster.Raster, region domain.Region) ([]ClassExposure, error) {
	lc, err := raster.Align(landcover, flood.Grid(), a.policy)
	if err != nil {
		return nil, err
	}

	out := make([]ClassExposure, len(a.classes))
	errs := make([]error, len(a.classes))
	lim := newLimiter(a.classWorkers)
	for i, class := range a.classes {
		lim.Go(func() {
			out[i], errs[i] = a.class(ctx, class, flood, lc, region)
		})
	}
	lim.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *ExposureAnalyzer) class(ctx context.Context, class LandCoverClass, flood, landcover *raster.Raster, region domain.Region) (ClassExposure, error) {
	mask := raster.SelfMask(raster.EqualTo(landcover, float64(class.Code)))
	affected, err := raster.UpdateMask(flood, mask)
	if err != nil {
		return ClassExposure{}, err
	}
	affectedHa, err := a.AreaHectares(ctx, affected, region)
	if err != nil {
		return ClassExposure{}, err
	}
	totalHa, err := a.AreaHectares(ctx, mask, region)
	if err != nil {
		return ClassExposure{}, err
	}
	return ClassExposure{
		Class:            class,
		Mask:             mask,
		Affected:         affected,
		AffectedHectares: affectedHa,
		TotalHectares:    totalHa,
	}, nil
}

// Population sums population counts under the flood at the population's own
// resolution. Counts are summed directly, not area-weighted, and the total in
// the region is reported alongside.
func (a *ExposureAnalyzer) Population(ctx context.Context, flood, population *raster.Raster, region domain.Region) (PopulationExposure, error) {
	mask, err := raster.Align(flood, population.Grid(), a.policy)
	if err != nil {
		return PopulationExposure{}, err
	}

	// Nearest sampling would drop counts, so population never downsamples.
	req := ZonalRequest{
		Values:    population,
		Region:    region,
		Reducer:   ReduceSum,
		MaxPixels: a.popMaxPixels,
		Budget:    BudgetFail,
	}
	total, err := a.zonal.Reduce(ctx, req)
	if err != nil {
		return PopulationExposure{}, err
	}

	req.Mask = mask
	exposed, err := a.zonal.Reduce(ctx, req)
	if err != nil {
		return PopulationExposure{}, err
	}
	return PopulationExposure{Exposed: exposed.Value, Total: total.Value}, nil
}
