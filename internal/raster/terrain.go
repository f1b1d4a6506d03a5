package raster

import "math"

// Slope derives terrain slope in degrees from an elevation raster (metres)
// using Horn's third-order finite difference. Neighbours outside the grid or
// absent take the centre elevation; absent centres stay absent. Geographic
// grids use the ground cell size of each row.
func Slope(dem *Raster) *Raster {
	g := dem.grid
	out := New(g)

	for row := 0; row < g.Rows; row++ {
		_, y := g.CellCenter(0, row)
		_, lat := ToLonLat(g.CRS, 0, y)
		dx, dy := PixelSizeMeters(g, lat)

		for col := 0; col < g.Cols; col++ {
			z, ok := dem.At(col, row)
			if !ok {
				continue
			}
			at := func(dc, dr int) float64 {
				c, r := col+dc, row+dr
				if c < 0 || r < 0 || c >= g.Cols || r >= g.Rows {
					return z
				}
				if v, ok := dem.At(c, r); ok {
					return v
				}
				return z
			}

			a, b, c := at(-1, -1), at(0, -1), at(1, -1)
			d, f := at(-1, 0), at(1, 0)
			gg, h, i := at(-1, 1), at(0, 1), at(1, 1)

			dzdx := ((c + 2*f + i) - (a + 2*d + gg)) / (8 * dx)
			dzdy := ((gg + 2*h + i) - (a + 2*b + c)) / (8 * dy)
			slope := math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
			out.Set(g.Index(col, row), slope)
		}
	}
	return out
}
