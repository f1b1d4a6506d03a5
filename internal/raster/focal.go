package raster

import (
	"math"
	"sort"
)

type offset struct{ dc, dr int }

// circleKernel returns the cell offsets whose centres lie within radius metres
// of the origin cell, given the ground size of a cell.
func circleKernel(radius, dx, dy float64) []offset {
	rc := int(math.Floor(radius / dx))
	rr := int(math.Floor(radius / dy))
	r2 := radius * radius
	kernel := make([]offset, 0, (2*rc+1)*(2*rr+1))
	for dr := -rr; dr <= rr; dr++ {
		for dc := -rc; dc <= rc; dc++ {
			ex, ey := float64(dc)*dx, float64(dr)*dy
			if ex*ex+ey*ey <= r2 {
				kernel = append(kernel, offset{dc, dr})
			}
		}
	}
	return kernel
}

// FocalMedian smooths r with a circular median of the given radius in metres.
// Kernel cells outside the grid or absent are skipped; a cell with no present
// neighbour is absent. Even neighbour counts average the two middle values.
func FocalMedian(r *Raster, radiusMeters float64) *Raster {
	g := r.grid
	dx, dy := PixelSizeMeters(g, g.CenterLat())
	kernel := circleKernel(radiusMeters, dx, dy)

	out := New(g)
	buf := make([]float64, 0, len(kernel))
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			buf = buf[:0]
			for _, k := range kernel {
				c, rr := col+k.dc, row+k.dr
				if c < 0 || rr < 0 || c >= g.Cols || rr >= g.Rows {
					continue
				}
				if v, ok := r.At(c, rr); ok {
					buf = append(buf, v)
				}
			}
			if len(buf) == 0 {
				continue
			}
			out.Set(g.Index(col, row), median(buf))
		}
	}
	return out
}

// median sorts vals in place.
func median(vals []float64) float64 {
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
