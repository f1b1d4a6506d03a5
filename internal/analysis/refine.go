package analysis

import (
	"context"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
)

// Refinement stage names.
const (
	StageChange         = "change"
	StagePermanentWater = "permanent_water"
	StageSlope          = "slope"
	StageIsolated       = "isolated_pixels"
)

// Refiner removes false positives from a flood mask in three stages. Every
// stage returns a new self-masked raster.
type Refiner struct {
	PermanentWaterMonths float64
	MaxSlopeDegrees      float64
	MinConnectedPixels   int
	Connectivity         raster.Connectivity
	Policy               raster.ResamplePolicy
}

// NewRefiner builds a refiner from validated parameters.
func NewRefiner(p Parameters) (*Refiner, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	conn, err := raster.ParseConnectivity(p.Connectivity)
	if err != nil {
		return nil, &domain.InvalidThresholdError{Name: "connectivity", Value: float64(p.Connectivity), Reason: err.Error()}
	}
	return &Refiner{
		PermanentWaterMonths: p.PermanentWaterMonths,
		MaxSlopeDegrees:      p.MaxSlopeDegrees,
		MinConnectedPixels:   p.MinConnectedPixels,
		Connectivity:         conn,
		Policy:               p.ResamplePolicy,
	}, nil
}

// Refinement is the refined mask plus the flagged cell count after each stage.
type Refinement struct {
	Mask   *raster.Raster
	Stages []domain.StageCount
}

// Refine runs permanent-water removal, slope masking and isolated-pixel
// removal in that order.
func (r *Refiner) Refine(ctx context.Context, flooded, seasonality, slope *raster.Raster) (Refinement, error) {
	res := Refinement{Stages: []domain.StageCount{{Name: StageChange, Cells: flooded.ValidCount()}}}

	mask, err := r.RemovePermanentWater(flooded, seasonality)
	if err != nil {
		return Refinement{}, err
	}
	res.Stages = append(res.Stages, domain.StageCount{Name: StagePermanentWater, Cells: mask.ValidCount()})
	if err := ctx.Err(); err != nil {
		return Refinement{}, err
	}

	mask, err = r.RemoveSteepSlopes(mask, slope)
	if err != nil {
		return Refinement{}, err
	}
	res.Stages = append(res.Stages, domain.StageCount{Name: StageSlope, Cells: mask.ValidCount()})
	if err := ctx.Err(); err != nil {
		return Refinement{}, err
	}

	mask = r.RemoveIsolated(mask)
	res.Stages = append(res.Stages, domain.StageCount{Name: StageIsolated, Cells: mask.ValidCount()})
	res.Mask = mask
	return res, nil
}

// RemovePermanentWater drops cells that are water in at least
// PermanentWaterMonths months of the year. Absent seasonality is not water.
func (r *Refiner) RemovePermanentWater(mask, seasonality *raster.Raster) (*raster.Raster, error) {
	water, err := raster.Align(seasonality, mask.Grid(), r.Policy)
	if err != nil {
		return nil, err
	}
	kept, err := raster.Where(mask, raster.GreaterEqual(water, r.PermanentWaterMonths), 0)
	if err != nil {
		return nil, err
	}
	return raster.SelfMask(kept), nil
}

// RemoveSteepSlopes keeps cells whose slope is below MaxSlopeDegrees. Cells
// without a slope value are dropped.
func (r *Refiner) RemoveSteepSlopes(mask, slope *raster.Raster) (*raster.Raster, error) {
	s, err := raster.Align(slope, mask.Grid(), r.Policy)
	if err != nil {
		return nil, err
	}
	return raster.UpdateMask(mask, raster.LessThan(s, r.MaxSlopeDegrees))
}

// RemoveIsolated drops connected components smaller than MinConnectedPixels.
// Applying it twice yields the same mask as applying it once.
func (r *Refiner) RemoveIsolated(mask *raster.Raster) *raster.Raster {
	return raster.RemoveSmallComponents(mask, r.Connectivity, r.MinConnectedPixels)
}
