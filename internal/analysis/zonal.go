package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/raster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer aggregates the contributing cells of a zonal statistic.
type Reducer string

const (
	ReduceSum   Reducer = "sum"
	ReduceMean  Reducer = "mean"
	ReduceMin   Reducer = "min"
	ReduceMax   Reducer = "max"
	ReduceCount Reducer = "count"
)

// BudgetPolicy decides what happens when a working set exceeds MaxPixels.
type BudgetPolicy string

const (
	// BudgetFail reports a BudgetExceededError.
	BudgetFail BudgetPolicy = "fail"
	// BudgetDownsample doubles the sampling scale until the working set fits.
	BudgetDownsample BudgetPolicy = "downsample"
)

// ParseBudgetPolicy validates a policy name.
func ParseBudgetPolicy(s string) (BudgetPolicy, error) {
	switch p := BudgetPolicy(s); p {
	case BudgetFail, BudgetDownsample:
		return p, nil
	default:
		return "", fmt.Errorf("unknown budget policy %q", s)
	}
}

// ZonalRequest describes one zonal statistic.
type ZonalRequest struct {
	Values *raster.Raster
	// Mask optionally restricts the contributing cells to its set cells.
	Mask    *raster.Raster
	Region  domain.Region
	Reducer Reducer
	// ScaleMeters samples the inputs onto a grid of that ground size covering
	// the region. Zero uses the native grid of Values.
	ScaleMeters float64
	// AreaWeighted multiplies every value by its cell's ground area in m².
	AreaWeighted bool
	// MaxPixels bounds the working set. Zero disables the check.
	MaxPixels int64
	Budget    BudgetPolicy
}

// ZonalResult is a reduced statistic. Valid is false for mean, min and max
// over an empty set; sum and count report zero instead.
type ZonalResult struct {
	Value       float64
	Valid       bool
	Count       int
	Pixels      int64
	ScaleMeters float64
}

// ZonalEngine reduces rasters over a region. Rows are split into tiles that
// run concurrently and merge in tile order, so results never depend on
// scheduling.
type ZonalEngine struct {
	workers  int
	tileRows int
	policy   raster.ResamplePolicy
}

func NewZonalEngine(workers, tileRows int, policy raster.ResamplePolicy) *ZonalEngine {
	return &ZonalEngine{workers: max(workers, 1), tileRows: tileRows, policy: policy}
}

type partial struct {
	sum      float64
	count    int
	min, max float64
}

// Reduce computes the statistic described by req.
func (e *ZonalEngine) Reduce(ctx context.Context, req ZonalRequest) (ZonalResult, error) {
	if req.Values == nil {
		return ZonalResult{}, errors.New("zonal: nil value raster")
	}
	switch req.Reducer {
	case ReduceSum, ReduceMean, ReduceMin, ReduceMax, ReduceCount:
	default:
		return ZonalResult{}, fmt.Errorf("zonal: unknown reducer %q", req.Reducer)
	}

	grid, scale, inside, pixels, err := workingSet(req)
	if err != nil {
		return ZonalResult{}, err
	}

	values, mask := req.Values, req.Mask
	if scale == 0 {
		if mask != nil {
			if mask, err = raster.Align(mask, grid, e.policy); err != nil {
				return ZonalResult{}, err
			}
		}
	} else {
		values = raster.Resample(values, grid)
		if mask != nil {
			mask = raster.Resample(mask, grid)
		}
	}

	tiles := raster.Tiles(grid, e.tileRows)
	partials := make([]partial, len(tiles))
	lim := newLimiter(e.workers)
	for _, t := range tiles {
		lim.Go(func() {
			if ctx.Err() != nil {
				return
			}
			partials[t.Index] = reduceTile(t, grid, values, mask, inside, req.AreaWeighted)
		})
	}
	lim.Wait()
	if err := ctx.Err(); err != nil {
		return ZonalResult{}, err
	}

	res := merge(req.Reducer, partials)
	res.Pixels = pixels
	res.ScaleMeters = scale
	return res, nil
}

// workingSet picks the sampling grid and counts the region cells on it,
// applying the budget policy.
func workingSet(req ZonalRequest) (raster.Grid, float64, []bool, int64, error) {
	scale := req.ScaleMeters
	for {
		grid := req.Values.Grid()
		if scale > 0 {
			grid = raster.GridForBound(req.Region.Bound(), grid.CRS, scale)
		}
		inside := raster.RegionCells(grid, req.Region)
		var pixels int64
		for _, ok := range inside {
			if ok {
				pixels++
			}
		}
		if req.MaxPixels <= 0 || pixels <= req.MaxPixels {
			return grid, scale, inside, pixels, nil
		}
		if req.Budget != BudgetDownsample {
			return raster.Grid{}, 0, nil, 0, &domain.BudgetExceededError{Pixels: pixels, Budget: req.MaxPixels}
		}
		if scale == 0 {
			scale, _ = raster.PixelSizeMeters(grid, grid.CenterLat())
		}
		scale *= 2
	}
}

func reduceTile(t raster.Tile, g raster.Grid, values, mask *raster.Raster, inside []bool, weighted bool) partial {
	var contrib []float64
	for row := t.RowStart; row < t.RowEnd; row++ {
		area := 1.0
		if weighted {
			area = raster.CellArea(g, row)
		}
		for col := 0; col < g.Cols; col++ {
			i := g.Index(col, row)
			if !inside[i] || (mask != nil && !mask.IsSet(i)) {
				continue
			}
			v, ok := values.Value(i)
			if !ok {
				continue
			}
			contrib = append(contrib, v*area)
		}
	}
	p := partial{count: len(contrib)}
	if p.count > 0 {
		p.sum = floats.Sum(contrib)
		p.min = floats.Min(contrib)
		p.max = floats.Max(contrib)
	}
	return p
}

func merge(reducer Reducer, partials []partial) ZonalResult {
	var sums, means, weights, mins, maxs []float64
	count := 0
	for _, p := range partials {
		if p.count == 0 {
			continue
		}
		count += p.count
		sums = append(sums, p.sum)
		means = append(means, p.sum/float64(p.count))
		weights = append(weights, float64(p.count))
		mins = append(mins, p.min)
		maxs = append(maxs, p.max)
	}

	res := ZonalResult{Count: count}
	switch reducer {
	case ReduceSum:
		res.Valid = true
		if count > 0 {
			res.Value = floats.Sum(sums)
		}
	case ReduceCount:
		res.Value, res.Valid = float64(count), true
	case ReduceMean:
		if count > 0 {
			res.Value, res.Valid = stat.Mean(means, weights), true
		}
	case ReduceMin:
		if count > 0 {
			res.Value, res.Valid = floats.Min(mins), true
		}
	case ReduceMax:
		if count > 0 {
			res.Value, res.Valid = floats.Max(maxs), true
		}
	}
	return res
}
