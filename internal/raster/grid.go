package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/math/f64"
)

// Grid describes the georeferencing of a raster. Transform maps the corner of
// cell (col, row) to CRS coordinates:
//
//	x = T[0]*col + T[1]*row + T[2]
//	y = T[3]*col + T[4]*row + T[5]
//
// Only north-up grids are supported (T[1] == T[3] == 0, T[4] < 0).
type Grid struct {
	Cols      int
	Rows      int
	Transform f64.Aff3
	CRS       string
}

// NewGrid builds a north-up grid whose top-left corner is (originX, originY).
// Pixel sizes are positive CRS units.
func NewGrid(cols, rows int, originX, originY, pixelWidth, pixelHeight float64, crs string) Grid {
	return Grid{
		Cols:      cols,
		Rows:      rows,
		Transform: f64.Aff3{pixelWidth, 0, originX, 0, -pixelHeight, originY},
		CRS:       crs,
	}
}

// Validate checks that the grid is usable.
func (g Grid) Validate() error {
	if g.Cols <= 0 || g.Rows <= 0 {
		return fmt.Errorf("grid has no cells: %dx%d", g.Cols, g.Rows)
	}
	if g.Transform[1] != 0 || g.Transform[3] != 0 {
		return fmt.Errorf("rotated grids are not supported")
	}
	if g.PixelWidth() <= 0 || g.PixelHeight() <= 0 {
		return fmt.Errorf("grid must be north-up with positive pixel size")
	}
	if !SupportedCRS(g.CRS) {
		return fmt.Errorf("unsupported CRS %q", g.CRS)
	}
	return nil
}

func (g Grid) Len() int { return g.Cols * g.Rows }
func (g Grid) PixelWidth() float64 { return g.Transform[0] }
func (g Grid) PixelHeight() float64 { return -g.Transform[4] }
func (g Grid) OriginX() float64 { return g.Transform[2] }
func (g Grid) OriginY() float64 { return g.Transform[5] }
func (g Grid) Index(col, row int) int { return row*g.Cols + col }

// CellCenter returns the CRS coordinates of the centre of (col, row).
func (g Grid) CellCenter(col, row int) (x, y float64) {
	x = g.Transform[0]*(float64(col)+0.5) + g.Transform[2]
	y = g.Transform[4]*(float64(row)+0.5) + g.Transform[5]
	return x, y
}

// CellAt returns the cell containing CRS point (x, y).
func (g Grid) CellAt(x, y float64) (col, row int, ok bool) {
	fc := (x - g.Transform[2]) / g.Transform[0]
	fr := (y - g.Transform[5]) / g.Transform[4]
	if fc < 0 || fr < 0 {
		return 0, 0, false
	}
	col, row = int(fc), int(fr)
	if col >= g.Cols || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}

// Bound returns the grid extent in CRS coordinates.
func (g Grid) Bound() orb.Bound {
	maxX := g.OriginX() + float64(g.Cols)*g.PixelWidth()
	minY := g.OriginY() - float64(g.Rows)*g.PixelHeight()
	return orb.Bound{Min: orb.Point{g.OriginX(), minY}, Max: orb.Point{maxX, g.OriginY()}}
}

// LonLatBound returns the grid extent in geographic coordinates.
func (g Grid) LonLatBound() orb.Bound {
	b := g.Bound()
	minLon, minLat := ToLonLat(g.CRS, b.Min[0], b.Min[1])
	maxLon, maxLat := ToLonLat(g.CRS, b.Max[0], b.Max[1])
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

// CenterLat returns the latitude of the grid centre.
func (g Grid) CenterLat() float64 {
	b := g.Bound()
	_, lat := ToLonLat(g.CRS, b.Center()[0], b.Center()[1])
	return lat
}

// Equal reports whether two grids describe the same cells.
func (g Grid) Equal(o Grid) bool {
	if g.Cols != o.Cols || g.Rows != o.Rows || g.CRS != o.CRS {
		return false
	}
	for i := range g.Transform {
		if !closeEnough(g.Transform[i], o.Transform[i]) {
			return false
		}
	}
	return true
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d@(%g,%g) px=(%g,%g) %s",
		g.Cols, g.Rows, g.OriginX(), g.OriginY(), g.PixelWidth(), g.PixelHeight(), g.CRS)
}

// AlignedGrid returns a grid with ref's CRS, pixel size and cell alignment
// that covers the lon/lat bound. The result may extend beyond ref.
func AlignedGrid(ref Grid, b orb.Bound) Grid {
	cb := projectBound(ref.CRS, b)
	pw, ph := ref.PixelWidth(), ref.PixelHeight()

	c0 := math.Floor((cb.Min[0] - ref.OriginX()) / pw)
	c1 := math.Ceil((cb.Max[0] - ref.OriginX()) / pw)
	r0 := math.Floor((ref.OriginY() - cb.Max[1]) / ph)
	r1 := math.Ceil((ref.OriginY() - cb.Min[1]) / ph)

	cols := max(int(c1-c0), 1)
	rows := max(int(r1-r0), 1)
	return NewGrid(cols, rows, ref.OriginX()+c0*pw, ref.OriginY()-r0*ph, pw, ph, ref.CRS)
}

// GridForBound builds a grid covering the lon/lat bound with square cells of
// scaleMeters ground size (measured at the bound's central latitude).
func GridForBound(b orb.Bound, crs string, scaleMeters float64) Grid {
	lat := b.Center()[1]
	pw, ph := metersToCRS(crs, lat, scaleMeters)
	cb := projectBound(crs, b)
	cols := max(int(math.Ceil((cb.Max[0]-cb.Min[0])/pw)), 1)
	rows := max(int(math.Ceil((cb.Max[1]-cb.Min[1])/ph)), 1)
	return NewGrid(cols, rows, cb.Min[0], cb.Max[1], pw, ph, crs)
}

func projectBound(crs string, b orb.Bound) orb.Bound {
	x0, y0 := FromLonLat(crs, b.Min[0], b.Min[1])
	x1, y1 := FromLonLat(crs, b.Max[0], b.Max[1])
	return orb.Bound{
		Min: orb.Point{math.Min(x0, x1), math.Min(y0, y1)},
		Max: orb.Point{math.Max(x0, x1), math.Max(y0, y1)},
	}
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= 1e-9*math.Max(scale, 1)
}
