package domain

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// regionVertices is the number of polygon vertices used to approximate the circle.
const regionVertices = 64

// Region is a circular region of interest around a point.
type Region struct {
	Lat          float64     `json:"lat"`
	Lon          float64     `json:"lon"`
	RadiusMeters float64     `json:"radius_meters"`
	Polygon      orb.Polygon `json:"-"`
}

// NewRegion builds a circular region around (lat, lon).
func NewRegion(lat, lon, radiusMeters float64) (Region, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return Region{}, &ValidationError{Field: "lat", Reason: "must be within [-90, 90]"}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return Region{}, &ValidationError{Field: "lon", Reason: "must be within [-180, 180]"}
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return Region{}, &InvalidThresholdError{Name: "radius_meters", Value: radiusMeters, Reason: "must be positive"}
	}

	center := orb.Point{lon, lat}
	ring := make(orb.Ring, 0, regionVertices+1)
	for i := 0; i < regionVertices; i++ {
		bearing := 360.0 * float64(i) / regionVertices
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusMeters))
	}
	ring = append(ring, ring[0])

	return Region{
		Lat:          lat,
		Lon:          lon,
		RadiusMeters: radiusMeters,
		Polygon:      orb.Polygon{ring},
	}, nil
}

// Center returns the region centre as an orb point (lon, lat).
func (r Region) Center() orb.Point { return orb.Point{r.Lon, r.Lat} }

// Bound returns the lon/lat bounding box of the region polygon.
func (r Region) Bound() orb.Bound { return r.Polygon.Bound() }

// Contains reports whether the lon/lat point lies inside the region.
func (r Region) Contains(lon, lat float64) bool {
	if len(r.Polygon) == 0 {
		return false
	}
	p := orb.Point{lon, lat}
	if !r.Polygon.Bound().Contains(p) {
		return false
	}
	return planar.PolygonContains(r.Polygon, p)
}

// AreaHectares returns the geodesic area of the region polygon in hectares.
func (r Region) AreaHectares() float64 {
	return math.Abs(geo.Area(r.Polygon)) / 10000
}

// GeoJSON renders the region as a GeoJSON feature for map layers.
func (r Region) GeoJSON() (json.RawMessage, error) {
	f := geojson.NewFeature(r.Polygon)
	f.Properties["name"] = "Region of Interest"
	f.Properties["radius_meters"] = r.RadiusMeters
	return f.MarshalJSON()
}
