package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// Supported coordinate reference systems.
const (
	// CRSGeographic is WGS84 lon/lat in degrees.
	CRSGeographic = "EPSG:4326"
	// CRSWebMercator is spherical web mercator in metres. Not equal-area.
	CRSWebMercator = "EPSG:3857"
	// CRSEqualArea is the sphere-based cylindrical equal-area projection in metres.
	CRSEqualArea = "ESRI:53034"
)

const (
	mercatorRadius  = 6378137.0
	equalAreaRadius = 6371000.0
	degToRad        = math.Pi / 180
)

// SupportedCRS reports whether crs can be used by the pipeline.
func SupportedCRS(crs string) bool {
	switch crs {
	case CRSGeographic, CRSWebMercator, CRSEqualArea:
		return true
	default:
		return false
	}
}

// ToLonLat converts CRS coordinates to lon/lat degrees.
func ToLonLat(crs string, x, y float64) (lon, lat float64) {
	switch crs {
	case CRSWebMercator:
		lon = x / mercatorRadius / degToRad
		lat = (2*math.Atan(math.Exp(y/mercatorRadius)) - math.Pi/2) / degToRad
	case CRSEqualArea:
		lon = x / equalAreaRadius / degToRad
		s := math.Max(-1, math.Min(1, y/equalAreaRadius))
		lat = math.Asin(s) / degToRad
	default:
		lon, lat = x, y
	}
	return lon, lat
}

// FromLonLat converts lon/lat degrees to CRS coordinates.
func FromLonLat(crs string, lon, lat float64) (x, y float64) {
	switch crs {
	case CRSWebMercator:
		x = mercatorRadius * lon * degToRad
		y = mercatorRadius * math.Log(math.Tan(math.Pi/4+lat*degToRad/2))
	case CRSEqualArea:
		x = equalAreaRadius * lon * degToRad
		y = equalAreaRadius * math.Sin(lat*degToRad)
	default:
		x, y = lon, lat
	}
	return x, y
}

// CellArea returns the ground area in square metres of any cell in the given
// row. Geographic cells use the exact spherical zone area; web mercator cells
// are scaled by cos² of the row's centre latitude.
func CellArea(g Grid, row int) float64 {
	pw, ph := g.PixelWidth(), g.PixelHeight()
	switch g.CRS {
	case CRSEqualArea:
		return pw * ph
	case CRSWebMercator:
		_, y := g.CellCenter(0, row)
		_, lat := ToLonLat(g.CRS, 0, y)
		c := math.Cos(lat * degToRad)
		return pw * ph * c * c
	default:
		top := g.OriginY() - float64(row)*ph
		bottom := top - ph
		r := orb.EarthRadius
		return r * r * pw * degToRad * math.Abs(math.Sin(top*degToRad)-math.Sin(bottom*degToRad))
	}
}

// PixelSizeMeters returns the ground size of a cell at the given latitude.
func PixelSizeMeters(g Grid, lat float64) (dx, dy float64) {
	c := math.Cos(lat * degToRad)
	pw, ph := g.PixelWidth(), g.PixelHeight()
	switch g.CRS {
	case CRSWebMercator:
		return pw * c, ph * c
	case CRSEqualArea:
		return pw * c, ph / c
	default:
		return pw * degToRad * orb.EarthRadius * c, ph * degToRad * orb.EarthRadius
	}
}

// metersToCRS converts a ground distance to CRS pixel sizes at a latitude.
func metersToCRS(crs string, lat, meters float64) (pw, ph float64) {
	c := math.Cos(lat * degToRad)
	switch crs {
	case CRSWebMercator:
		return meters / c, meters / c
	case CRSEqualArea:
		return meters / c, meters * c
	default:
		return meters / (degToRad * orb.EarthRadius * c), meters / (degToRad * orb.EarthRadius)
	}
}
