package raster

import (
	"math"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
)

// Map applies fn to every present cell. fn returning false drops the cell.
func Map(r *Raster, fn func(v float64) (float64, bool)) *Raster {
	out := New(r.grid)
	for i, ok := range r.valid {
		if !ok {
			continue
		}
		if v, keep := fn(r.values[i]); keep {
			out.Set(i, v)
		}
	}
	return out
}

// Combine applies fn to cells present in both rasters. The rasters must share
// a grid.
func Combine(a, b *Raster, fn func(x, y float64) (float64, bool)) (*Raster, error) {
	if err := sameGrid(a, b); err != nil {
		return nil, err
	}
	out := New(a.grid)
	for i := range a.values {
		if !a.valid[i] || !b.valid[i] {
			continue
		}
		if v, keep := fn(a.values[i], b.values[i]); keep {
			out.Set(i, v)
		}
	}
	return out, nil
}

// Divide returns a / b. Division by zero is absent rather than infinite.
func Divide(a, b *Raster) (*Raster, error) {
	return Combine(a, b, func(x, y float64) (float64, bool) {
		if y == 0 {
			return 0, false
		}
		q := x / y
		return q, !math.IsNaN(q) && !math.IsInf(q, 0)
	})
}

// GreaterThan returns 1 where v > t and 0 elsewhere; absent cells stay absent.
func GreaterThan(r *Raster, t float64) *Raster {
	return compare(r, func(v float64) bool { return v > t })
}

// GreaterEqual returns 1 where v >= t and 0 elsewhere.
func GreaterEqual(r *Raster, t float64) *Raster {
	return compare(r, func(v float64) bool { return v >= t })
}

// LessThan returns 1 where v < t and 0 elsewhere.
func LessThan(r *Raster, t float64) *Raster {
	return compare(r, func(v float64) bool { return v < t })
}

// EqualTo returns 1 where v == t and 0 elsewhere.
func EqualTo(r *Raster, t float64) *Raster {
	return compare(r, func(v float64) bool { return v == t })
}

func compare(r *Raster, pred func(float64) bool) *Raster {
	return Map(r, func(v float64) (float64, bool) {
		if pred(v) {
			return 1, true
		}
		return 0, true
	})
}

// SelfMask drops zero cells, turning a 0/1 raster into a mask.
func SelfMask(r *Raster) *Raster {
	return Map(r, func(v float64) (float64, bool) { return v, v != 0 })
}

// UpdateMask keeps r's cells only where mask is present and non-zero.
func UpdateMask(r, mask *Raster) (*Raster, error) {
	if err := sameGrid(r, mask); err != nil {
		return nil, err
	}
	out := New(r.grid)
	for i, ok := range r.valid {
		if ok && mask.IsSet(i) {
			out.Set(i, r.values[i])
		}
	}
	return out, nil
}

// Where replaces present cells of r with v wherever cond is present and non-zero.
func Where(r, cond *Raster, v float64) (*Raster, error) {
	if err := sameGrid(r, cond); err != nil {
		return nil, err
	}
	out := r.Clone()
	for i, ok := range r.valid {
		if ok && cond.IsSet(i) {
			out.Set(i, v)
		}
	}
	return out, nil
}

// DBToLinear converts decibel backscatter to linear power.
func DBToLinear(r *Raster) *Raster {
	return Map(r, func(v float64) (float64, bool) { return math.Pow(10, v/10), true })
}

func sameGrid(a, b *Raster) error {
	if a.grid.Equal(b.grid) {
		return nil
	}
	return &domain.GridMismatchError{Left: a.grid.String(), Right: b.grid.String()}
}
