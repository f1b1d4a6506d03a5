// Package raster provides in-memory georeferenced grids with explicit cell
// validity. A cell is either a finite value or absent; nodata sentinels exist
// only at the codec boundary, so an excluded cell can never be mistaken for an
// explicit zero in a reduction.
package raster

import (
	"fmt"
	"math"
)

// Raster is a single-band grid of optional float64 cells.
type Raster struct {
	grid   Grid
	values []float64
	valid  []bool
}

// New returns a raster on g with every cell absent.
func New(g Grid) *Raster {
	return &Raster{
		grid:   g,
		values: make([]float64, g.Len()),
		valid:  make([]bool, g.Len()),
	}
}

// NewFilled returns a raster on g with every cell set to v.
func NewFilled(g Grid, v float64) *Raster {
	r := New(g)
	for i := range r.values {
		r.Set(i, v)
	}
	return r
}

// FromValues builds a raster from row-major values. Cells equal to nodata,
// NaN or infinite are absent.
func FromValues(g Grid, values []float64, nodata float64) (*Raster, error) {
	if len(values) != g.Len() {
		return nil, fmt.Errorf("raster: %d values for %dx%d grid", len(values), g.Cols, g.Rows)
	}
	r := New(g)
	for i, v := range values {
		if v == nodata {
			continue
		}
		r.Set(i, v)
	}
	return r, nil
}

func (r *Raster) Grid() Grid { return r.grid }
func (r *Raster) Len() int { return len(r.values) }

// Value returns the cell at flat index i and whether it is present.
func (r *Raster) Value(i int) (float64, bool) {
	return r.values[i], r.valid[i]
}

// At returns the cell at (col, row) and whether it is present.
func (r *Raster) At(col, row int) (float64, bool) {
	return r.Value(r.grid.Index(col, row))
}

// IsSet reports whether the cell is present and non-zero (mask semantics).
func (r *Raster) IsSet(i int) bool {
	return r.valid[i] && r.values[i] != 0
}

// Set stores v at flat index i. Non-finite values leave the cell absent.
func (r *Raster) Set(i int, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		r.Unset(i)
		return
	}
	r.values[i] = v
	r.valid[i] = true
}

// Unset marks the cell at flat index i as absent.
func (r *Raster) Unset(i int) {
	r.values[i] = 0
	r.valid[i] = false
}

// ValidCount returns the number of present cells.
func (r *Raster) ValidCount() int {
	n := 0
	for _, ok := range r.valid {
		if ok {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no cell is present.
func (r *Raster) IsEmpty() bool { return r.ValidCount() == 0 }

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	c := &Raster{
		grid:   r.grid,
		values: make([]float64, len(r.values)),
		valid:  make([]bool, len(r.valid)),
	}
	copy(c.values, r.values)
	copy(c.valid, r.valid)
	return c
}

// Values exports the cells row-major with absent cells filled by nodata.
func (r *Raster) Values(nodata float64) []float64 {
	out := make([]float64, len(r.values))
	for i, v := range r.values {
		if r.valid[i] {
			out[i] = v
		} else {
			out[i] = nodata
		}
	}
	return out
}

// Equal reports whether both rasters share a grid and identical cells.
func (r *Raster) Equal(o *Raster) bool {
	if !r.grid.Equal(o.grid) {
		return false
	}
	for i := range r.values {
		if r.valid[i] != o.valid[i] {
			return false
		}
		if r.valid[i] && r.values[i] != o.values[i] {
			return false
		}
	}
	return true
}
