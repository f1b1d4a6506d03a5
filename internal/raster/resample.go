package raster

import (
	"fmt"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
)

// ResamplePolicy controls what happens when rasters on different grids meet.
type ResamplePolicy string

const (
	// ResampleNone refuses to combine rasters on different grids.
	ResampleNone ResamplePolicy = "none"
	// ResampleNearest samples the source at each target cell centre.
	ResampleNearest ResamplePolicy = "nearest"
)

// ParseResamplePolicy validates a policy name.
func ParseResamplePolicy(s string) (ResamplePolicy, error) {
	switch p := ResamplePolicy(s); p {
	case ResampleNone, ResampleNearest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown resample policy %q", s)
	}
}

// Align returns src on the target grid. Rasters already on target are returned
// unchanged; otherwise the policy decides between resampling and a
// GridMismatchError.
func Align(src *Raster, target Grid, policy ResamplePolicy) (*Raster, error) {
	if src.grid.Equal(target) {
		return src, nil
	}
	if policy != ResampleNearest {
		return nil, &domain.GridMismatchError{Left: src.grid.String(), Right: target.String()}
	}
	return Resample(src, target), nil
}

// Resample samples src at the centre of every target cell. Target cells
// falling outside src, or on an absent source cell, are absent.
func Resample(src *Raster, target Grid) *Raster {
	out := New(target)
	sameCRS := src.grid.CRS == target.CRS
	for row := 0; row < target.Rows; row++ {
		for col := 0; col < target.Cols; col++ {
			x, y := target.CellCenter(col, row)
			if !sameCRS {
				lon, lat := ToLonLat(target.CRS, x, y)
				x, y = FromLonLat(src.grid.CRS, lon, lat)
			}
			sc, sr, ok := src.grid.CellAt(x, y)
			if !ok {
				continue
			}
			if v, ok := src.At(sc, sr); ok {
				out.Set(target.Index(col, row), v)
			}
		}
	}
	return out
}
