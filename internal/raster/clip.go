package raster

import "github.com/couchcryptid/flood-impact-service/internal/domain"

// RegionCells marks the cells of g whose centre lies inside the region.
func RegionCells(g Grid, region domain.Region) []bool {
	inside := make([]bool, g.Len())
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			x, y := g.CellCenter(col, row)
			lon, lat := ToLonLat(g.CRS, x, y)
			inside[g.Index(col, row)] = region.Contains(lon, lat)
		}
	}
	return inside
}

// ClipToRegion drops every cell whose centre lies outside the region.
func ClipToRegion(r *Raster, region domain.Region) *Raster {
	inside := RegionCells(r.grid, region)
	out := New(r.grid)
	for i, ok := range r.valid {
		if ok && inside[i] {
			out.Set(i, r.values[i])
		}
	}
	return out
}

// Covers reports whether any present cell of r has its centre inside the region.
func Covers(r *Raster, region domain.Region) bool {
	g := r.grid
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if !r.valid[g.Index(col, row)] {
				continue
			}
			x, y := g.CellCenter(col, row)
			if lon, lat := ToLonLat(g.CRS, x, y); region.Contains(lon, lat) {
				return true
			}
		}
	}
	return false
}
