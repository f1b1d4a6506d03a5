package analysis

import (
	"math"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
)

// SpeckleFilter suppresses radar speckle with a circular focal median.
type SpeckleFilter struct {
	RadiusMeters float64
}

func NewSpeckleFilter(radiusMeters float64) (SpeckleFilter, error) {
	if radiusMeters < 0 || math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) {
		return SpeckleFilter{}, &domain.InvalidThresholdError{
			Name: "speckle_radius_meters", Value: radiusMeters, Reason: "must be a non-negative distance",
		}
	}
	return SpeckleFilter{RadiusMeters: radiusMeters}, nil
}

// Apply returns the filtered raster. Each call only sees its own input, so
// the before and after mosaics are smoothed independently.
func (f SpeckleFilter) Apply(r *raster.Raster) *raster.Raster {
	return raster.FocalMedian(r, f.RadiusMeters)
}

// ChangeDetector flags cells whose backscatter rose by more than a ratio.
type ChangeDetector struct {
	Threshold float64
}

func NewChangeDetector(threshold float64) (ChangeDetector, error) {
	if !(threshold > 0) || math.IsInf(threshold, 0) {
		return ChangeDetector{}, &domain.InvalidThresholdError{
			Name: "flood_ratio_threshold", Value: threshold, Reason: "must be a positive ratio",
		}
	}
	return ChangeDetector{Threshold: threshold}, nil
}

// Change holds the after/before ratio and the self-masked flood flags.
type Change struct {
	Ratio   *raster.Raster
	Flooded *raster.Raster
}

// Detect computes after / before in linear units. Cells where before is zero
// or either input is absent have no ratio. Flooded holds 1 where the ratio
// exceeds the threshold and is absent everywhere else.
func (d ChangeDetector) Detect(before, after *raster.Raster) (Change, error) {
	ratio, err := raster.Divide(after, before)
	if err != nil {
		return Change{}, err
	}
	return Change{
		Ratio:   ratio,
		Flooded: raster.SelfMask(raster.GreaterThan(ratio, d.Threshold)),
	}, nil
}
